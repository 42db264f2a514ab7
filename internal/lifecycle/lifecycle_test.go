package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/platform-desk/internal/domain"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func snapshotWith(status domain.TicketStatus, operatorID *string) Snapshot {
	return Snapshot{
		TicketID:   "ticket-1",
		Title:      "Build fails on main",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: operatorID,
		Status:     status,
	}
}

func TestProposeTransitionTable(t *testing.T) {
	t.Parallel()

	operator := Actor{ID: "op-1", Role: domain.RoleOperator}
	creator := Actor{ID: "user-1", Role: domain.RoleUser}

	tests := []struct {
		name       string
		snapshot   Snapshot
		change     Change
		actor      Actor
		candidates []string
		wantKind   TransitionKind
		wantStatus domain.TicketStatus
	}{
		{
			name:       "operator reply moves to waiting user",
			snapshot:   snapshotWith(domain.TicketStatusWaitingOperator, strPtr("op-1")),
			change:     Change{Status: statusPtr(domain.TicketStatusWaitingUser)},
			actor:      operator,
			wantKind:   KindEdited,
			wantStatus: domain.TicketStatusWaitingUser,
		},
		{
			name:       "user reply moves to waiting operator",
			snapshot:   snapshotWith(domain.TicketStatusWaitingUser, strPtr("op-1")),
			change:     Change{Status: statusPtr(domain.TicketStatusWaitingOperator)},
			actor:      creator,
			wantKind:   KindEdited,
			wantStatus: domain.TicketStatusWaitingOperator,
		},
		{
			name:       "operator closes from waiting operator",
			snapshot:   snapshotWith(domain.TicketStatusWaitingOperator, strPtr("op-1")),
			change:     Change{Status: statusPtr(domain.TicketStatusClosed)},
			actor:      operator,
			wantKind:   KindClosed,
			wantStatus: domain.TicketStatusClosed,
		},
		{
			name:       "operator closes from waiting user",
			snapshot:   snapshotWith(domain.TicketStatusWaitingUser, strPtr("op-1")),
			change:     Change{Status: statusPtr(domain.TicketStatusClosed)},
			actor:      operator,
			wantKind:   KindClosed,
			wantStatus: domain.TicketStatusClosed,
		},
		{
			name:       "reply reopens closed ticket to waiting operator",
			snapshot:   snapshotWith(domain.TicketStatusClosed, strPtr("op-1")),
			change:     Change{Status: statusPtr(domain.TicketStatusWaitingOperator)},
			actor:      creator,
			wantKind:   KindReopened,
			wantStatus: domain.TicketStatusWaitingOperator,
		},
		{
			name:       "manual assignment out of unassigned",
			snapshot:   snapshotWith(domain.TicketStatusUnassigned, nil),
			change:     Change{Operator: strPtr("op-2")},
			actor:      Actor{ID: "admin-1", Role: domain.RoleAdmin},
			wantKind:   KindAssigned,
			wantStatus: domain.TicketStatusWaitingOperator,
		},
		{
			name:       "reassignment keeps status",
			snapshot:   snapshotWith(domain.TicketStatusWaitingUser, strPtr("op-1")),
			change:     Change{Operator: strPtr("op-2")},
			actor:      Actor{ID: "admin-1", Role: domain.RoleAdmin},
			wantKind:   KindUnassigned,
			wantStatus: domain.TicketStatusWaitingUser,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			outcome, err := ProposeTransition(tc.snapshot, tc.change, tc.actor, tc.candidates, testNow)
			require.NoError(t, err)
			assert.Equal(t, tc.wantKind, outcome.Kind)
			assert.Equal(t, tc.snapshot.Status, outcome.OldStatus)
			assert.Equal(t, tc.wantStatus, outcome.NewStatus)
			assert.Equal(t, tc.actor, outcome.Actor)
			assert.Equal(t, testNow, outcome.Timestamp)
		})
	}
}

func TestProposeTransitionInvalidEdges(t *testing.T) {
	t.Parallel()

	operator := Actor{ID: "op-1", Role: domain.RoleOperator}

	tests := []struct {
		name     string
		snapshot Snapshot
		change   Change
	}{
		{
			name:     "unassigned cannot close directly",
			snapshot: snapshotWith(domain.TicketStatusUnassigned, nil),
			change:   Change{Status: statusPtr(domain.TicketStatusClosed)},
		},
		{
			name:     "unassigned cannot move to waiting user",
			snapshot: snapshotWith(domain.TicketStatusUnassigned, nil),
			change:   Change{Status: statusPtr(domain.TicketStatusWaitingUser)},
		},
		{
			name:     "closed cannot move to waiting user",
			snapshot: snapshotWith(domain.TicketStatusClosed, strPtr("op-1")),
			change:   Change{Status: statusPtr(domain.TicketStatusWaitingUser)},
		},
		{
			name:     "waiting operator cannot self-loop",
			snapshot: snapshotWith(domain.TicketStatusWaitingOperator, strPtr("op-1")),
			change:   Change{Status: statusPtr(domain.TicketStatusWaitingOperator)},
		},
		{
			name:     "no change requested",
			snapshot: snapshotWith(domain.TicketStatusWaitingOperator, strPtr("op-1")),
			change:   Change{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ProposeTransition(tc.snapshot, tc.change, operator, nil, testNow)
			var invalidErr *InvalidTransitionError
			require.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestProposeTransitionAuthorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		snapshot Snapshot
		change   Change
		actor    Actor
	}{
		{
			name:     "plain user cannot close",
			snapshot: snapshotWith(domain.TicketStatusWaitingOperator, strPtr("op-1")),
			change:   Change{Status: statusPtr(domain.TicketStatusClosed)},
			actor:    Actor{ID: "user-1", Role: domain.RoleUser},
		},
		{
			name:     "plain user cannot reassign",
			snapshot: snapshotWith(domain.TicketStatusWaitingOperator, strPtr("op-1")),
			change:   Change{Operator: strPtr("op-2")},
			actor:    Actor{ID: "user-1", Role: domain.RoleUser},
		},
		{
			name:     "plain user cannot manually assign",
			snapshot: snapshotWith(domain.TicketStatusUnassigned, nil),
			change:   Change{Operator: strPtr("op-2")},
			actor:    Actor{ID: "user-1", Role: domain.RoleUser},
		},
		{
			name:     "stranger cannot post user reply",
			snapshot: snapshotWith(domain.TicketStatusWaitingUser, strPtr("op-1")),
			change:   Change{Status: statusPtr(domain.TicketStatusWaitingOperator)},
			actor:    Actor{ID: "user-2", Role: domain.RoleUser},
		},
		{
			name:     "operator cannot post the user-side reply",
			snapshot: snapshotWith(domain.TicketStatusWaitingUser, strPtr("op-1")),
			change:   Change{Status: statusPtr(domain.TicketStatusWaitingOperator)},
			actor:    Actor{ID: "op-1", Role: domain.RoleOperator},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ProposeTransition(tc.snapshot, tc.change, tc.actor, nil, testNow)
			var unauthorizedErr *UnauthorizedTransitionError
			require.ErrorAs(t, err, &unauthorizedErr)
		})
	}
}

func TestAutoAssignIsDeterministic(t *testing.T) {
	t.Parallel()

	snapshot := snapshotWith(domain.TicketStatusUnassigned, nil)
	actor := Actor{ID: "user-1", Role: domain.RoleUser}
	candidates := []string{"op-9", "op-3", "op-7"}

	first, err := ProposeTransition(snapshot, Change{}, actor, candidates, testNow)
	require.NoError(t, err)
	require.NotNil(t, first.NewOperator)
	assert.Equal(t, "op-3", *first.NewOperator)
	assert.Equal(t, KindAutoAssigned, first.Kind)
	assert.Equal(t, domain.TicketStatusWaitingOperator, first.NewStatus)

	// Same pool in any order selects the same operator.
	for i := 0; i < 5; i++ {
		again, err := ProposeTransition(snapshot, Change{}, actor, []string{"op-7", "op-9", "op-3"}, testNow)
		require.NoError(t, err)
		assert.Equal(t, *first.NewOperator, *again.NewOperator)
	}
}

func TestAutoAssignWithoutCandidatesFails(t *testing.T) {
	t.Parallel()

	snapshot := snapshotWith(domain.TicketStatusUnassigned, nil)
	_, err := ProposeTransition(snapshot, Change{}, Actor{ID: "user-1", Role: domain.RoleUser}, nil, testNow)

	var noOperatorErr *NoAvailableOperatorError
	require.ErrorAs(t, err, &noOperatorErr)
	assert.Equal(t, "platform-1", noOperatorErr.PlatformID)
}

func TestReopenWithoutOperatorReassigns(t *testing.T) {
	t.Parallel()

	snapshot := snapshotWith(domain.TicketStatusClosed, nil)
	actor := Actor{ID: "user-1", Role: domain.RoleUser}
	change := Change{Status: statusPtr(domain.TicketStatusWaitingOperator)}

	outcome, err := ProposeTransition(snapshot, change, actor, []string{"op-5", "op-2"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, KindReopened, outcome.Kind)
	require.NotNil(t, outcome.NewOperator)
	assert.Equal(t, "op-2", *outcome.NewOperator)
}

func TestReopenWithoutCandidatesFails(t *testing.T) {
	t.Parallel()

	snapshot := snapshotWith(domain.TicketStatusClosed, nil)
	change := Change{Status: statusPtr(domain.TicketStatusWaitingOperator)}

	_, err := ProposeTransition(snapshot, change, Actor{ID: "user-1", Role: domain.RoleUser}, nil, testNow)

	var noOperatorErr *NoAvailableOperatorError
	require.ErrorAs(t, err, &noOperatorErr)
}

func TestCreationOutcome(t *testing.T) {
	t.Parallel()

	snapshot := snapshotWith(domain.TicketStatusUnassigned, nil)
	outcome := CreationOutcome(snapshot, Actor{ID: "user-1", Role: domain.RoleUser}, testNow)

	assert.Equal(t, KindCreated, outcome.Kind)
	assert.Equal(t, domain.TicketStatusUnassigned, outcome.OldStatus)
	assert.Equal(t, domain.TicketStatusUnassigned, outcome.NewStatus)
	assert.Equal(t, "ticket-1", outcome.TicketID)
}
