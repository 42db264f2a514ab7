package domain

import "time"

// Message captures a reply in a ticket thread. Replies are what drive the
// WaitingOperator/WaitingUser ping-pong and reopen closed tickets.
type Message struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
