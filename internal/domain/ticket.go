package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnassigned      TicketStatus = "UNASSIGNED"
	TicketStatusWaitingOperator TicketStatus = "WAITING_OPERATOR"
	TicketStatusWaitingUser     TicketStatus = "WAITING_USER"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// TicketType categorizes what kind of request a ticket is.
type TicketType string

const (
	TicketTypeBug      TicketType = "BUG"
	TicketTypeFeature  TicketType = "FEATURE"
	TicketTypeQuestion TicketType = "QUESTION"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is the aggregate for platform support requests.
// OperatorID is nil exactly while Status is UNASSIGNED.
type Ticket struct {
	ID          string
	ExternalKey string
	PlatformID  string
	CreatorID   string
	OperatorID  *string
	Type        TicketType
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
