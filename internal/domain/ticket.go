package domain

import "time"

// TicketStatus enumerates nominal lifecycle states. The set is open: the engine
// stores any string verbatim and only the workflow rules in the service layer
// force transitions.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusTriaged  TicketStatus = "TRIAGED"
	TicketStatusAssigned TicketStatus = "ASSIGNED"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// TicketPriority enumerates nominal urgency levels. Open set, never validated.
type TicketPriority string

const (
	TicketPriorityP0 TicketPriority = "P0"
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
)

// TicketCategory enumerates nominal classification buckets. Open set; the
// automation agent may submit values outside it.
type TicketCategory string

const (
	TicketCategoryDatabase    TicketCategory = "Database"
	TicketCategoryNetwork     TicketCategory = "Network"
	TicketCategoryApplication TicketCategory = "Application"
	TicketCategoryAccess      TicketCategory = "Access"
	TicketCategorySecurity    TicketCategory = "Security"
	TicketCategoryOther       TicketCategory = "Other"
)

// Ticket is the sole aggregate. ID is assigned by the store on first insert and
// never reassigned. Suggestions holds distinct trimmed non-empty strings in
// insertion order. AssignedTeam records the label from the assign operation.
type Ticket struct {
	ID           int64
	Title        string
	Description  string
	Reporter     string
	Priority     TicketPriority
	Category     TicketCategory
	Status       TicketStatus
	AssignedTeam string
	CreatedAt    time.Time
	Suggestions  []string
}
