// Package lifecycle owns the ticket state machine: which status and
// assignment changes are valid, who may perform them, and which audit and
// notification records each accepted change produces. Everything here is pure
// computation over snapshots; persistence belongs to the caller.
package lifecycle

import (
	"sort"
	"time"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// TransitionKind tags an accepted transition. It selects the Edit and
// Notification templates downstream.
type TransitionKind string

const (
	KindCreated      TransitionKind = "CREATED"
	KindAutoAssigned TransitionKind = "AUTO_ASSIGNED"
	KindAssigned     TransitionKind = "ASSIGNED"
	// KindUnassigned is the operator-transfer kind: the ticket moves between
	// operators without a status change.
	KindUnassigned TransitionKind = "UNASSIGNED"
	KindEdited     TransitionKind = "EDITED"
	KindClosed     TransitionKind = "CLOSED"
	KindReopened   TransitionKind = "REOPENED"
)

// Snapshot is the immutable view of a ticket the engine computes against.
// It carries ids and copied fields only, never live persistence objects.
type Snapshot struct {
	TicketID   string
	Title      string
	PlatformID string
	CreatorID  string
	OperatorID *string
	Status     domain.TicketStatus
}

// Actor identifies who is requesting a transition.
type Actor struct {
	ID   string
	Role domain.Role
}

// Change is a requested transition: a target status, a target operator, or
// both. A nil Operator on the assign edge requests auto-assignment.
type Change struct {
	Status   *domain.TicketStatus
	Operator *string
}

// Outcome describes an accepted transition. The caller applies it to the
// persisted ticket; the emitter derives side-effect records from it.
type Outcome struct {
	TicketID    string
	Kind        TransitionKind
	OldStatus   domain.TicketStatus
	NewStatus   domain.TicketStatus
	OldOperator *string
	NewOperator *string
	Actor       Actor
	Timestamp   time.Time
}

// CreationOutcome describes a freshly created ticket so the emitter can
// produce its Edit and operator notifications. Creation is not an edge in the
// transition table; the ticket starts and stays Unassigned.
func CreationOutcome(snapshot Snapshot, actor Actor, now time.Time) Outcome {
	return Outcome{
		TicketID:  snapshot.TicketID,
		Kind:      KindCreated,
		OldStatus: domain.TicketStatusUnassigned,
		NewStatus: domain.TicketStatusUnassigned,
		Actor:     actor,
		Timestamp: now,
	}
}

// ProposeTransition validates the requested change against the transition
// table and the actor's role, and computes the resulting outcome. It performs
// no I/O and mutates nothing: on error the ticket is untouched by definition.
//
// candidates is the ordered set of operator ids preferring the ticket's
// platform; it is consulted only when an edge needs auto-assignment.
func ProposeTransition(snapshot Snapshot, change Change, actor Actor, candidates []string, now time.Time) (Outcome, error) {
	outcome := Outcome{
		TicketID:    snapshot.TicketID,
		OldStatus:   snapshot.Status,
		OldOperator: snapshot.OperatorID,
		NewOperator: snapshot.OperatorID,
		Actor:       actor,
		Timestamp:   now,
	}

	if snapshot.Status == domain.TicketStatusUnassigned {
		return proposeAssign(snapshot, change, actor, candidates, outcome)
	}

	// Operator change without a status change is the transfer edge.
	if change.Operator != nil && (change.Status == nil || *change.Status == snapshot.Status) {
		if !actor.Role.IsStaff() {
			return Outcome{}, &UnauthorizedTransitionError{ActorID: actor.ID, Role: actor.Role, From: snapshot.Status, To: snapshot.Status}
		}
		outcome.Kind = KindUnassigned
		outcome.NewStatus = snapshot.Status
		outcome.NewOperator = change.Operator
		return outcome, nil
	}

	if change.Status == nil {
		return Outcome{}, &InvalidTransitionError{From: snapshot.Status, To: snapshot.Status}
	}
	target := *change.Status

	switch {
	case snapshot.Status == domain.TicketStatusWaitingOperator && target == domain.TicketStatusWaitingUser:
		// Operator reply.
		if !actor.Role.IsStaff() {
			return Outcome{}, unauthorized(snapshot, actor, target)
		}
		outcome.Kind = KindEdited

	case snapshot.Status == domain.TicketStatusWaitingUser && target == domain.TicketStatusWaitingOperator:
		// User reply.
		if actor.ID != snapshot.CreatorID {
			return Outcome{}, unauthorized(snapshot, actor, target)
		}
		outcome.Kind = KindEdited

	case (snapshot.Status == domain.TicketStatusWaitingOperator || snapshot.Status == domain.TicketStatusWaitingUser) && target == domain.TicketStatusClosed:
		if !actor.Role.IsStaff() {
			return Outcome{}, unauthorized(snapshot, actor, target)
		}
		outcome.Kind = KindClosed

	case snapshot.Status == domain.TicketStatusClosed && target == domain.TicketStatusWaitingOperator:
		// Reopen by reply; routes to WaitingOperator regardless of who replied.
		if actor.ID != snapshot.CreatorID && !actor.Role.IsStaff() {
			return Outcome{}, unauthorized(snapshot, actor, target)
		}
		outcome.Kind = KindReopened
		if snapshot.OperatorID == nil {
			operator, ok := selectCandidate(candidates)
			if !ok {
				return Outcome{}, &NoAvailableOperatorError{PlatformID: snapshot.PlatformID}
			}
			outcome.NewOperator = &operator
		}

	default:
		return Outcome{}, &InvalidTransitionError{From: snapshot.Status, To: target}
	}

	outcome.NewStatus = target
	return outcome, nil
}

// proposeAssign handles the only edge out of Unassigned: assigning an
// operator, which moves the ticket to WaitingOperator.
func proposeAssign(snapshot Snapshot, change Change, actor Actor, candidates []string, outcome Outcome) (Outcome, error) {
	if change.Status != nil && *change.Status != domain.TicketStatusWaitingOperator {
		return Outcome{}, &InvalidTransitionError{From: snapshot.Status, To: *change.Status}
	}
	if change.Operator != nil {
		// Manual assignment to an explicit operator.
		if !actor.Role.IsStaff() {
			return Outcome{}, unauthorized(snapshot, actor, domain.TicketStatusWaitingOperator)
		}
		outcome.Kind = KindAssigned
		outcome.NewOperator = change.Operator
	} else {
		operator, ok := selectCandidate(candidates)
		if !ok {
			return Outcome{}, &NoAvailableOperatorError{PlatformID: snapshot.PlatformID}
		}
		outcome.Kind = KindAutoAssigned
		outcome.NewOperator = &operator
	}
	outcome.NewStatus = domain.TicketStatusWaitingOperator
	return outcome, nil
}

// selectCandidate picks the auto-assignment target: the first operator in
// stable ascending id order, so repeated calls over the same pool always
// agree.
func selectCandidate(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)
	return sorted[0], true
}

func unauthorized(snapshot Snapshot, actor Actor, target domain.TicketStatus) error {
	return &UnauthorizedTransitionError{ActorID: actor.ID, Role: actor.Role, From: snapshot.Status, To: target}
}
