package dto

import (
	"encoding/json"
	"time"

	"github.com/opsguardian/backend/internal/domain"
)

// CreateTicketRequest payload. Field names match the wire format the triage
// agent already speaks. Any id the client includes is simply not mapped.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Reporter    string                `json:"reporter"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   *time.Time            `json:"createdAt"`
}

// UpdateTicketRequest captures a partial update; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Priority *domain.TicketPriority `json:"priority"`
	Category *domain.TicketCategory `json:"category"`
	Status   *domain.TicketStatus   `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	Team string `json:"team"`
}

// AgentTokenRequest carries the agent's pre-shared key.
type AgentTokenRequest struct {
	Key string `json:"key"`
}

// AgentTokenResponse returns a bearer token for subsequent calls.
type AgentTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID           int64                 `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Reporter     string                `json:"reporter"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
	Status       domain.TicketStatus   `json:"status"`
	AssignedTeam string                `json:"assignedTeam,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	Suggestions  []string              `json:"suggestions"`
}

// FromTicket maps a domain ticket to its response shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	suggestions := ticket.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return TicketResponse{
		ID:           ticket.ID,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Reporter:     ticket.Reporter,
		Priority:     ticket.Priority,
		Category:     ticket.Category,
		Status:       ticket.Status,
		AssignedTeam: ticket.AssignedTeam,
		CreatedAt:    ticket.CreatedAt,
		Suggestions:  suggestions,
	}
}

// DecodeSuggestionsPayload extracts suggestion strings from one of the three
// accepted body shapes: a bare array of strings, an object with a
// "suggestions" array, or an object with a single "suggestion" string.
// The second return is false when the body matches none of them.
func DecodeSuggestionsPayload(raw []byte) ([]string, bool) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, true
	}
	var obj struct {
		Suggestions []string `json:"suggestions"`
		Suggestion  *string  `json:"suggestion"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Suggestions != nil {
			return obj.Suggestions, true
		}
		if obj.Suggestion != nil {
			return []string{*obj.Suggestion}, true
		}
	}
	return nil, false
}
