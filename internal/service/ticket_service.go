package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opsguardian/backend/internal/domain"
	"github.com/opsguardian/backend/internal/events"
	"github.com/opsguardian/backend/internal/repository"
	"github.com/opsguardian/backend/pkg/apperrors"
)

// TicketService is the workflow engine for tickets. It owns creation defaults,
// partial field updates, the idempotent suggestion merge and the assignment
// transition. Mutations against the same ticket id are serialized with a
// per-id mutex so concurrent read-modify-write cycles cannot lose updates.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
}

// TicketCreateInput describes ticket creation payload. Any caller-supplied id
// has already been discarded at the transport boundary; the input carries none.
type TicketCreateInput struct {
	Title       string
	Description string
	Reporter    string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	Status      domain.TicketStatus
	CreatedAt   time.Time
}

// TicketUpdateInput describes a partial field update. Nil leaves the
// corresponding field unchanged; non-nil overwrites unconditionally, with no
// validation against the nominal value sets and no transition check.
type TicketUpdateInput struct {
	Priority *domain.TicketPriority
	Category *domain.TicketCategory
	Status   *domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// Create stores a new ticket, defaulting CreatedAt to now and Status to OPEN
// when absent. The store assigns the id.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Reporter:    input.Reporter,
		Priority:    input.Priority,
		Category:    input.Category,
		Status:      input.Status,
		CreatedAt:   input.CreatedAt,
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Reporter: ticket.Reporter,
			Priority: ticket.Priority,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

// Get returns the current persisted state of a ticket.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.fetch(ctx, id)
}

// Search returns all tickets when the query is blank, otherwise every ticket
// whose title or description contains the query as a case-insensitive
// substring. An empty result is not an error.
func (s *TicketService) Search(ctx context.Context, query string) ([]domain.Ticket, error) {
	var (
		result []domain.Ticket
		err    error
	)
	if strings.TrimSpace(query) == "" {
		result, err = s.tickets.List(ctx)
	} else {
		result, err = s.tickets.Search(ctx, query)
	}
	if err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}
	if result == nil {
		result = []domain.Ticket{}
	}
	return result, nil
}

// UpdateFields applies a partial update of priority, category and status.
func (s *TicketService) UpdateFields(ctx context.Context, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	unlock := s.lockTicket(id)
	defer unlock()

	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.Category != nil {
		ticket.Category = *input.Category
	}
	if input.Status != nil {
		ticket.Status = *input.Status
	}

	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// AddSuggestions merges candidate suggestions into the ticket. Candidates are
// trimmed; blanks and exact duplicates are dropped, which makes the merge
// idempotent under retries. Suggestion arrival forces the ticket to ASSIGNED
// unless it already is, whatever its current status.
func (s *TicketService) AddSuggestions(ctx context.Context, id int64, suggestions []string) (*domain.Ticket, error) {
	unlock := s.lockTicket(id)
	defer unlock()

	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	added := mergeSuggestions(ticket, suggestions)

	oldStatus := ticket.Status
	if !strings.EqualFold(string(ticket.Status), string(domain.TicketStatusAssigned)) {
		ticket.Status = domain.TicketStatusAssigned
	}

	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSuggestionsAdded,
		TicketID: ticket.ID,
		Payload: events.TicketSuggestionsAddedPayload{
			Added: added,
			Total: len(ticket.Suggestions),
		},
	})
	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// Assign marks the ticket ASSIGNED regardless of current status and records
// the team label. The label is also published on the assigned event for
// notification consumers.
func (s *TicketService) Assign(ctx context.Context, id int64, team string) (*domain.Ticket, error) {
	unlock := s.lockTicket(id)
	defer unlock()

	ticket, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	ticket.Status = domain.TicketStatusAssigned
	ticket.AssignedTeam = team

	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Payload:  events.TicketAssignedPayload{Team: team},
	})
	return ticket, nil
}

// mergeSuggestions appends the surviving candidates in input order and returns
// them. Existing entries and their order are preserved.
func mergeSuggestions(ticket *domain.Ticket, candidates []string) []string {
	seen := make(map[string]struct{}, len(ticket.Suggestions))
	for _, existing := range ticket.Suggestions {
		seen[existing] = struct{}{}
	}
	var added []string
	for _, candidate := range candidates {
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		ticket.Suggestions = append(ticket.Suggestions, trimmed)
		added = append(added, trimmed)
	}
	return added
}

func (s *TicketService) fetch(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewStorageFailure(err)
	}
	return ticket, nil
}

func (s *TicketService) save(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.NewStorageFailure(err)
	}
	return nil
}

// lockTicket serializes mutations per ticket id. Lock entries are retained for
// the process lifetime; the id space is small enough that eviction is not
// worth the bookkeeping.
func (s *TicketService) lockTicket(id int64) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
