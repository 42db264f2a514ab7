package events

import (
	"time"

	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/lifecycle"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventNotificationsSent  EventType = "notifications_sent"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketTransitionedPayload carries the accepted transition plus the edit and
// the notification recipients it produced.
type TicketTransitionedPayload struct {
	Kind        lifecycle.TransitionKind `json:"kind"`
	OldStatus   domain.TicketStatus      `json:"old_status"`
	NewStatus   domain.TicketStatus      `json:"new_status"`
	OperatorID  *string                  `json:"operator_id,omitempty"`
	EditID      string                   `json:"edit_id"`
	Recipients  []string                 `json:"recipients"`
	TicketTitle string                   `json:"ticket_title"`
	PlatformID  string                   `json:"platform_id"`
	ExternalKey string                   `json:"external_key"`
}
