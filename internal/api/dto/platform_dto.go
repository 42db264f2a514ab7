package dto

import "time"

// CreatePlatformRequest payload.
type CreatePlatformRequest struct {
	Name          string `json:"name"`
	RepositoryURL string `json:"repository_url"`
}

// PlatformResponse is the public view of a platform.
type PlatformResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RepositoryURL string    `json:"repository_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationResponse represents a notification row.
type NotificationResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
