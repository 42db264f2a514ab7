package lifecycle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// Emit builds the side-effect records for an accepted transition: exactly one
// Edit and zero or more Notifications. Records are in-memory only; persisting
// them atomically with the ticket is the caller's job.
//
// platformOperators is the preferring-operator pool of the ticket's platform;
// it is read only for the Created kind. The notification set is deterministic
// and contains at most one entry per recipient.
func Emit(outcome Outcome, snapshot Snapshot, platformOperators []string) (domain.Edit, []domain.Notification) {
	edit := domain.Edit{
		ID:          uuid.NewString(),
		TicketID:    outcome.TicketID,
		UserID:      outcome.Actor.ID,
		Description: editDescription(outcome.Kind),
		OldStatus:   outcome.OldStatus,
		NewStatus:   outcome.NewStatus,
		CreatedAt:   outcome.Timestamp,
	}
	return edit, notificationsFor(outcome, snapshot, platformOperators)
}

func editDescription(kind TransitionKind) string {
	switch kind {
	case KindCreated:
		return "Ticket created"
	case KindAutoAssigned:
		return "Ticket automatically assigned to operator"
	case KindAssigned:
		return "Ticket assigned to operator"
	case KindUnassigned:
		return "Ticket transferred to another operator"
	case KindEdited:
		return "Reply added to ticket"
	case KindClosed:
		return "Ticket closed"
	case KindReopened:
		return "Ticket reopened"
	default:
		return "Ticket updated"
	}
}

func notificationsFor(outcome Outcome, snapshot Snapshot, platformOperators []string) []domain.Notification {
	b := notificationBuilder{outcome: outcome, seen: map[string]struct{}{}}
	title := snapshot.Title

	switch outcome.Kind {
	case KindCreated:
		for _, operatorID := range platformOperators {
			b.add(operatorID, fmt.Sprintf("New ticket %q was filed against a platform you support", title))
		}

	case KindAutoAssigned, KindAssigned:
		if outcome.NewOperator != nil {
			b.add(*outcome.NewOperator, fmt.Sprintf("You were assigned ticket %q", title))
		}
		b.add(snapshot.CreatorID, fmt.Sprintf("An operator was assigned to your ticket %q", title))

	case KindEdited:
		// Replies notify the counterpart: an operator reply goes to the
		// creator, a user reply goes to the current operator.
		if outcome.NewStatus == domain.TicketStatusWaitingUser {
			b.add(snapshot.CreatorID, fmt.Sprintf("New reply on your ticket %q", title))
		} else if outcome.NewOperator != nil {
			b.add(*outcome.NewOperator, fmt.Sprintf("New reply on ticket %q", title))
		}

	case KindUnassigned:
		if outcome.OldOperator != nil {
			b.add(*outcome.OldOperator, fmt.Sprintf("Ticket %q was transferred away from you", title))
		}
		if outcome.NewOperator != nil {
			b.add(*outcome.NewOperator, fmt.Sprintf("Ticket %q was transferred to you", title))
		}

	case KindClosed:
		b.add(snapshot.CreatorID, fmt.Sprintf("Your ticket %q was closed", title))
		if outcome.NewOperator != nil {
			b.add(*outcome.NewOperator, fmt.Sprintf("Ticket %q was closed", title))
		}

	case KindReopened:
		if outcome.NewOperator != nil {
			b.add(*outcome.NewOperator, fmt.Sprintf("Ticket %q was reopened", title))
		}
	}

	return b.notifications
}

// notificationBuilder collects recipients, dropping duplicates so each user
// gets at most one notification per edit.
type notificationBuilder struct {
	outcome       Outcome
	seen          map[string]struct{}
	notifications []domain.Notification
}

func (b *notificationBuilder) add(userID, message string) {
	if _, dup := b.seen[userID]; dup {
		return
	}
	b.seen[userID] = struct{}{}
	b.notifications = append(b.notifications, domain.Notification{
		ID:        uuid.NewString(),
		TicketID:  b.outcome.TicketID,
		UserID:    userID,
		Message:   message,
		CreatedAt: b.outcome.Timestamp,
	})
}
