package domain

import "time"

// Role enumerates what a user account is allowed to do.
type Role string

const (
	RoleUser     Role = "USER"
	RoleOperator Role = "OPERATOR"
	RoleAdmin    Role = "ADMIN"
)

// IsStaff reports whether the role may work tickets (close, reassign).
func (r Role) IsStaff() bool {
	return r == RoleOperator || r == RoleAdmin
}

// User is the domain model for everyone who touches tickets: requesters,
// operators and administrators share one account table, split by Role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
