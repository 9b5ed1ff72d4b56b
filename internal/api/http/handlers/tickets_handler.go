package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/opsguardian/backend/internal/api/dto"
	"github.com/opsguardian/backend/internal/service"
	"github.com/opsguardian/backend/pkg/apperrors"
)

// TicketsHandler exposes the ticket workflow operations over HTTP.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidPayload("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Reporter:    req.Reporter,
		Priority:    req.Priority,
		Category:    req.Category,
		Status:      req.Status,
	}
	if req.CreatedAt != nil {
		input.CreatedAt = *req.CreatedAt
	}
	ticket, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// SearchTickets GET /tickets?query=.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	tickets, err := h.service.Search(c.UserContext(), c.Query("query"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// UpdateTicket PUT /tickets/:id. Partial update of priority, category, status.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidPayload("invalid payload", nil)
	}
	ticket, err := h.service.UpdateFields(c.UserContext(), id, service.TicketUpdateInput{
		Priority: req.Priority,
		Category: req.Category,
		Status:   req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AddSuggestions POST /tickets/:id/suggestions. The body may be a bare string
// array, an object with a "suggestions" array, or an object with a single
// "suggestion" string; the agent has used all three shapes.
func (h *TicketsHandler) AddSuggestions(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	suggestions, ok := dto.DecodeSuggestionsPayload(c.Body())
	if !ok || !hasUsableSuggestion(suggestions) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"reason": "no suggestions found in payload",
		})
	}
	ticket, err := h.service.AddSuggestions(c.UserContext(), id, suggestions)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "ticket": dto.FromTicket(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidPayload("invalid payload", nil)
	}
	if _, err := h.service.Assign(c.UserContext(), id, req.Team); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "assigned"})
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidPayload("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func hasUsableSuggestion(suggestions []string) bool {
	for _, s := range suggestions {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
