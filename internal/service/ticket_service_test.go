package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/events"
	"github.com/spec-kit/platform-desk/internal/lifecycle"
	"github.com/spec-kit/platform-desk/internal/observability"
	"github.com/spec-kit/platform-desk/internal/repository"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// ---- in-memory fakes ----

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) GetByExternalKey(_ context.Context, key string) (*domain.Ticket, error) {
	for _, ticket := range f.tickets {
		if ticket.ExternalKey == key {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.OperatorID != nil && (ticket.OperatorID == nil || *ticket.OperatorID != *filter.OperatorID) {
			continue
		}
		result = append(result, *ticket)
	}
	return result, nil
}

type fakeEditRepo struct{}

func (fakeEditRepo) ListByTicket(context.Context, string) ([]domain.Edit, error) { return nil, nil }

type fakeMessageRepo struct{}

func (fakeMessageRepo) ListByTicket(context.Context, string) ([]domain.Message, error) {
	return nil, nil
}

type fakePlatformRepo struct {
	platforms map[string]*domain.Platform
}

func (f *fakePlatformRepo) Create(_ context.Context, p *domain.Platform) error {
	p.ID = "platform-new"
	f.platforms[p.ID] = p
	return nil
}

func (f *fakePlatformRepo) Update(context.Context, *domain.Platform) error { return nil }

func (f *fakePlatformRepo) GetByID(_ context.Context, id string) (*domain.Platform, error) {
	platform, ok := f.platforms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return platform, nil
}

func (f *fakePlatformRepo) List(context.Context, int, int) ([]domain.Platform, error) {
	return nil, nil
}

type fakeUserPlatformRepo struct {
	operators map[string][]string // platformID -> operator ids
}

func (f *fakeUserPlatformRepo) Add(_ context.Context, userID, platformID string) error {
	f.operators[platformID] = append(f.operators[platformID], userID)
	return nil
}

func (f *fakeUserPlatformRepo) Remove(context.Context, string, string) error { return nil }

func (f *fakeUserPlatformRepo) ListOperatorsForPlatform(_ context.Context, platformID string) ([]string, error) {
	return f.operators[platformID], nil
}

func (f *fakeUserPlatformRepo) ListPlatformsForUser(context.Context, string) ([]string, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Update(context.Context, *domain.User) error { return nil }

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

type appliedTransition struct {
	oldStatus domain.TicketStatus
	records   repository.TransitionRecords
}

type fakeStore struct {
	tickets  *fakeTicketRepo
	created  []repository.TransitionRecords
	applied  []appliedTransition
	applyErr error
}

func (f *fakeStore) CreateTicket(_ context.Context, records repository.TransitionRecords) error {
	records.Ticket.CreatedAt = time.Now()
	records.Ticket.UpdatedAt = records.Ticket.CreatedAt
	clone := *records.Ticket
	f.tickets.tickets[clone.ID] = &clone
	f.created = append(f.created, records)
	return nil
}

func (f *fakeStore) ApplyTransition(_ context.Context, oldStatus domain.TicketStatus, records repository.TransitionRecords) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	clone := *records.Ticket
	f.tickets.tickets[clone.ID] = &clone
	f.applied = append(f.applied, appliedTransition{oldStatus: oldStatus, records: records})
	return nil
}

type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

// ---- fixture ----

type fixture struct {
	service       *TicketService
	tickets       *fakeTicketRepo
	store         *fakeStore
	userPlatforms *fakeUserPlatformRepo
	users         *fakeUserRepo
	dispatcher    *captureDispatcher
}

func newFixture() *fixture {
	tickets := &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
	store := &fakeStore{tickets: tickets}
	userPlatforms := &fakeUserPlatformRepo{operators: map[string][]string{}}
	users := &fakeUserRepo{users: map[string]*domain.User{}}
	dispatcher := &captureDispatcher{}

	platforms := &fakePlatformRepo{platforms: map[string]*domain.Platform{
		"platform-1": {ID: "platform-1", Name: "core-api", RepositoryURL: "https://example.com/core-api"},
	}}

	svc := NewTicketService(TicketDependencies{
		TicketRepo:       tickets,
		EditRepo:         fakeEditRepo{},
		MessageRepo:      fakeMessageRepo{},
		PlatformRepo:     platforms,
		UserPlatformRepo: userPlatforms,
		UserRepo:         users,
		Store:            store,
		Dispatcher:       dispatcher,
		Metrics:          observability.NewMetrics(),
		Logger:           zap.NewNop(),
	})
	return &fixture{
		service:       svc,
		tickets:       tickets,
		store:         store,
		userPlatforms: userPlatforms,
		users:         users,
		dispatcher:    dispatcher,
	}
}

func (f *fixture) addUser(id string, role domain.Role) *domain.User {
	user := &domain.User{ID: id, Name: id, Email: id + "@example.com", Role: role, Active: true}
	f.users.users[id] = user
	return user
}

func (f *fixture) addTicket(ticket *domain.Ticket) {
	clone := *ticket
	f.tickets.tickets[clone.ID] = &clone
}

func testCreateInput() TicketCreateInput {
	return TicketCreateInput{
		PlatformID:  "platform-1",
		Type:        domain.TicketTypeBug,
		Title:       "Build fails on main",
		Description: "The pipeline breaks at the lint stage.",
		Priority:    domain.TicketPriorityHigh,
	}
}

// ---- tests ----

func TestCreateTicketAutoAssigns(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)
	f.addUser("op-1", domain.RoleOperator)
	f.userPlatforms.operators["platform-1"] = []string{"op-1"}

	ticket, err := f.service.CreateTicket(context.Background(), creator, testCreateInput())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusWaitingOperator, ticket.Status)
	require.NotNil(t, ticket.OperatorID)
	assert.Equal(t, "op-1", *ticket.OperatorID)

	// Creation writes the ticket plus creation side effects; auto-assignment
	// follows as a second atomic transition.
	require.Len(t, f.store.created, 1)
	creation := f.store.created[0]
	assert.Equal(t, domain.TicketStatusUnassigned, creation.Edit.OldStatus)
	assert.Equal(t, domain.TicketStatusUnassigned, creation.Edit.NewStatus)
	require.Len(t, creation.Notifications, 1)
	assert.Equal(t, "op-1", creation.Notifications[0].UserID)

	require.Len(t, f.store.applied, 1)
	assignment := f.store.applied[0]
	assert.Equal(t, domain.TicketStatusUnassigned, assignment.oldStatus)
	assert.Equal(t, domain.TicketStatusUnassigned, assignment.records.Edit.OldStatus)
	assert.Equal(t, domain.TicketStatusWaitingOperator, assignment.records.Edit.NewStatus)

	recipients := make([]string, 0, 2)
	for _, n := range assignment.records.Notifications {
		recipients = append(recipients, n.UserID)
	}
	assert.Equal(t, []string{"op-1", "user-1"}, recipients)

	assert.Len(t, f.dispatcher.published, 2)
}

func TestCreateTicketWithoutOperatorsStaysUnassigned(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)

	ticket, err := f.service.CreateTicket(context.Background(), creator, testCreateInput())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusUnassigned, ticket.Status)
	assert.Nil(t, ticket.OperatorID)
	assert.Empty(t, f.store.applied)
}

func TestCreateTicketUnknownPlatform(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)

	input := testCreateInput()
	input.PlatformID = "platform-missing"

	_, err := f.service.CreateTicket(context.Background(), creator, input)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestOperatorReplyMovesToWaitingUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addUser("user-1", domain.RoleUser)
	operator := f.addUser("op-1", domain.RoleOperator)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Title:      "Build fails on main",
		Status:     domain.TicketStatusWaitingOperator,
	})

	ticket, message, err := f.service.Reply(context.Background(), operator, "ticket-1", "Looking into it.")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusWaitingUser, ticket.Status)
	assert.Equal(t, "Looking into it.", message.Body)

	require.Len(t, f.store.applied, 1)
	applied := f.store.applied[0]
	require.NotNil(t, applied.records.Message)
	require.Len(t, applied.records.Notifications, 1)
	assert.Equal(t, "user-1", applied.records.Notifications[0].UserID)
}

func TestUserCannotClose(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Status:     domain.TicketStatusWaitingOperator,
	})

	_, err := f.service.CloseTicket(context.Background(), creator, "ticket-1")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
	assert.Empty(t, f.store.applied)
}

func TestOperatorClosesTicket(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addUser("user-1", domain.RoleUser)
	operator := f.addUser("op-1", domain.RoleOperator)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Title:      "Build fails on main",
		Status:     domain.TicketStatusWaitingUser,
	})

	ticket, err := f.service.CloseTicket(context.Background(), operator, "ticket-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	require.NotNil(t, ticket.ClosedAt)

	require.Len(t, f.store.applied, 1)
	recipients := make([]string, 0, 2)
	for _, n := range f.store.applied[0].records.Notifications {
		recipients = append(recipients, n.UserID)
	}
	assert.Equal(t, []string{"user-1", "op-1"}, recipients)
}

func TestReopenWithoutOperatorFailsCleanly(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)
	// Closed ticket whose operator was deactivated and dropped; no preferring
	// operators remain for the platform.
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		Status:     domain.TicketStatusClosed,
	})

	_, _, err := f.service.Reply(context.Background(), creator, "ticket-1", "Still broken.")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "NO_AVAILABLE_OPERATOR", domainErr.Code)

	// No partial mutation: nothing written, status untouched.
	assert.Empty(t, f.store.applied)
	stored, err := f.tickets.GetByID(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}

func TestReplyReopensClosedTicket(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)
	f.addUser("op-1", domain.RoleOperator)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Title:      "Build fails on main",
		Status:     domain.TicketStatusClosed,
	})

	ticket, _, err := f.service.Reply(context.Background(), creator, "ticket-1", "It broke again.")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusWaitingOperator, ticket.Status)
	assert.Nil(t, ticket.ClosedAt)
	require.Len(t, f.store.applied, 1)
	assert.Equal(t, domain.TicketStatusClosed, f.store.applied[0].records.Edit.OldStatus)
}

func TestAssignRejectsNonOperatorAssignee(t *testing.T) {
	t.Parallel()

	f := newFixture()
	admin := f.addUser("admin-1", domain.RoleAdmin)
	f.addUser("user-2", domain.RoleUser)
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		Status:     domain.TicketStatusUnassigned,
	})

	assignee := "user-2"
	_, err := f.service.AssignTicket(context.Background(), admin, "ticket-1", &assignee)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestAdminTransfersTicket(t *testing.T) {
	t.Parallel()

	f := newFixture()
	admin := f.addUser("admin-1", domain.RoleAdmin)
	f.addUser("op-1", domain.RoleOperator)
	f.addUser("op-2", domain.RoleOperator)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Title:      "Build fails on main",
		Status:     domain.TicketStatusWaitingOperator,
	})

	newOperator := "op-2"
	ticket, err := f.service.AssignTicket(context.Background(), admin, "ticket-1", &newOperator)
	require.NoError(t, err)

	// Transfer keeps the status and swaps the operator.
	assert.Equal(t, domain.TicketStatusWaitingOperator, ticket.Status)
	require.NotNil(t, ticket.OperatorID)
	assert.Equal(t, "op-2", *ticket.OperatorID)

	require.Len(t, f.store.applied, 1)
	recipients := make([]string, 0, 2)
	for _, n := range f.store.applied[0].records.Notifications {
		recipients = append(recipients, n.UserID)
	}
	assert.Equal(t, []string{"op-1", "op-2"}, recipients)
}

func TestConcurrentTransitionSurfacesConflict(t *testing.T) {
	t.Parallel()

	f := newFixture()
	operator := f.addUser("op-1", domain.RoleOperator)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Status:     domain.TicketStatusWaitingOperator,
	})
	f.store.applyErr = pgx.ErrNoRows

	_, err := f.service.CloseTicket(context.Background(), operator, "ticket-1")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestListTicketsScopesUsersToOwn(t *testing.T) {
	t.Parallel()

	f := newFixture()
	creator := f.addUser("user-1", domain.RoleUser)
	operator := f.addUser("op-1", domain.RoleOperator)
	f.addTicket(&domain.Ticket{ID: "ticket-1", PlatformID: "platform-1", CreatorID: "user-1", Status: domain.TicketStatusUnassigned})
	f.addTicket(&domain.Ticket{ID: "ticket-2", PlatformID: "platform-1", CreatorID: "user-9", Status: domain.TicketStatusUnassigned})

	own, err := f.service.ListTickets(context.Background(), creator, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "ticket-1", own[0].ID)

	all, err := f.service.ListTickets(context.Background(), operator, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTransitionEventCarriesKind(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addUser("user-1", domain.RoleUser)
	operator := f.addUser("op-1", domain.RoleOperator)
	operatorID := "op-1"
	f.addTicket(&domain.Ticket{
		ID:         "ticket-1",
		PlatformID: "platform-1",
		CreatorID:  "user-1",
		OperatorID: &operatorID,
		Title:      "Build fails on main",
		Status:     domain.TicketStatusWaitingUser,
	})

	_, err := f.service.CloseTicket(context.Background(), operator, "ticket-1")
	require.NoError(t, err)

	require.Len(t, f.dispatcher.published, 1)
	payload, ok := f.dispatcher.published[0].Payload.(events.TicketTransitionedPayload)
	require.True(t, ok)
	assert.Equal(t, lifecycle.KindClosed, payload.Kind)
	assert.Equal(t, domain.TicketStatusClosed, payload.NewStatus)
	assert.ElementsMatch(t, []string{"user-1", "op-1"}, payload.Recipients)
}
