package dto

import (
	"time"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	PlatformID  string                `json:"platform_id"`
	Type        domain.TicketType     `json:"type"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// ReplyRequest payload for thread replies.
type ReplyRequest struct {
	Body string `json:"body"`
}

// AssignRequest payload. A null operator_id requests auto-assignment.
type AssignRequest struct {
	OperatorID *string `json:"operator_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	PlatformID  string                `json:"platform_id"`
	OperatorID  *string               `json:"operator_id"`
	Type        domain.TicketType     `json:"type"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with thread and audit trail.
type TicketDetailResponse struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	PlatformID  string                `json:"platform_id"`
	CreatorID   string                `json:"creator_id"`
	OperatorID  *string               `json:"operator_id"`
	Type        domain.TicketType     `json:"type"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
	Messages    []MessageResponse     `json:"messages"`
	Edits       []EditResponse        `json:"edits"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// EditResponse represents an audit record.
type EditResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Description string              `json:"description"`
	OldStatus   domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus `json:"new_status"`
	CreatedAt   time.Time           `json:"created_at"`
}
