package lifecycle

import (
	"fmt"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// InvalidTransitionError reports a requested edge that does not exist in the
// transition table for the ticket's current status.
type InvalidTransitionError struct {
	From domain.TicketStatus
	To   domain.TicketStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid ticket transition %s -> %s", e.From, e.To)
}

// UnauthorizedTransitionError reports an actor whose role may not perform the
// requested edge.
type UnauthorizedTransitionError struct {
	ActorID string
	Role    domain.Role
	From    domain.TicketStatus
	To      domain.TicketStatus
}

func (e *UnauthorizedTransitionError) Error() string {
	return fmt.Sprintf("role %s may not transition ticket %s -> %s", e.Role, e.From, e.To)
}

// NoAvailableOperatorError reports that auto-assignment found no operator
// preferring the ticket's platform. The ticket is left untouched.
type NoAvailableOperatorError struct {
	PlatformID string
}

func (e *NoAvailableOperatorError) Error() string {
	return fmt.Sprintf("no operator available for platform %s", e.PlatformID)
}
