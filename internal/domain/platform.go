package domain

import "time"

// Platform is an external repository tickets are filed against.
type Platform struct {
	ID            string
	Name          string
	RepositoryURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserPlatform records an operator's preference for a platform. Preferring
// operators form the candidate pool for auto-assignment.
type UserPlatform struct {
	UserID     string
	PlatformID string
	CreatedAt  time.Time
}
