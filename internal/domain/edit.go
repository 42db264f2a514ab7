package domain

import "time"

// Edit is an immutable audit record. Exactly one is written per accepted
// status or assignment change and it is never mutated afterwards.
type Edit struct {
	ID          string
	TicketID    string
	UserID      string
	Description string
	OldStatus   TicketStatus
	NewStatus   TicketStatus
	CreatedAt   time.Time
}
