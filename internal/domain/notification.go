package domain

import "time"

// Notification is a per-recipient message generated by a ticket transition.
// The read flag is the only field mutated after creation.
type Notification struct {
	ID        string
	TicketID  string
	UserID    string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
