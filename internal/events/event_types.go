package events

import (
	"time"

	"github.com/opsguardian/backend/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketSuggestionsAdded EventType = "ticket_suggestions_added"
	EventTicketAssigned         EventType = "ticket_assigned"
)

// Event represents a domain event emitted by the workflow engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Reporter string                `json:"reporter,omitempty"`
	Priority domain.TicketPriority `json:"priority,omitempty"`
	Category domain.TicketCategory `json:"category,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketSuggestionsAddedPayload payload.
type TicketSuggestionsAddedPayload struct {
	Added []string `json:"added"`
	Total int      `json:"total"`
}

// TicketAssignedPayload carries the team label. The label also lives on the
// ticket record; the event is the notification side channel.
type TicketAssignedPayload struct {
	Team string `json:"team"`
}
