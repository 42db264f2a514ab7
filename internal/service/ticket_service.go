package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/events"
	"github.com/spec-kit/platform-desk/internal/lifecycle"
	"github.com/spec-kit/platform-desk/internal/observability"
	"github.com/spec-kit/platform-desk/internal/repository"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// TicketService coordinates ticket workflows: it loads a snapshot, asks the
// lifecycle engine for an outcome, persists ticket plus side effects
// atomically, and publishes the transition event.
type TicketService struct {
	tickets       repository.TicketRepository
	edits         repository.EditRepository
	messages      repository.MessageRepository
	platforms     repository.PlatformRepository
	userPlatforms repository.UserPlatformRepository
	users         repository.UserRepository
	store         repository.TransitionStore
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	EditRepo         repository.EditRepository
	MessageRepo      repository.MessageRepository
	PlatformRepo     repository.PlatformRepository
	UserPlatformRepo repository.UserPlatformRepository
	UserRepo         repository.UserRepository
	Store            repository.TransitionStore
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	PlatformID  string
	Type        domain.TicketType
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	PlatformID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	AssignedToMe bool
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:       deps.TicketRepo,
		edits:         deps.EditRepo,
		messages:      deps.MessageRepo,
		platforms:     deps.PlatformRepo,
		userPlatforms: deps.UserPlatformRepo,
		users:         deps.UserRepo,
		store:         deps.Store,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
	}
}

// CreateTicket creates a ticket for a user and attempts auto-assignment. The
// ticket stays Unassigned when no operator prefers the platform; that is not
// an error for creation.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if _, err := s.platforms.GetByID(ctx, input.PlatformID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("platform", map[string]any{"platform_id": input.PlatformID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		ExternalKey: generateTicketKey(),
		PlatformID:  input.PlatformID,
		CreatorID:   creator.ID,
		Type:        input.Type,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusUnassigned,
		Priority:    input.Priority,
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeBug
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	candidates, err := s.userPlatforms.ListOperatorsForPlatform(ctx, ticket.PlatformID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	actor := actorOf(creator)
	snapshot := snapshotOf(ticket)
	now := time.Now()

	creation := lifecycle.CreationOutcome(snapshot, actor, now)
	edit, notifications := lifecycle.Emit(creation, snapshot, candidates)
	if err := s.store.CreateTicket(ctx, repository.TransitionRecords{
		Ticket:        ticket,
		Edit:          edit,
		Notifications: notifications,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordTransition(string(lifecycle.KindCreated))
	s.publishTransition(ctx, ticket, creation, edit, notifications)

	// Best-effort auto-assignment right after creation.
	outcome, err := lifecycle.ProposeTransition(snapshot, lifecycle.Change{}, actor, candidates, now)
	if err != nil {
		var noOperator *lifecycle.NoAvailableOperatorError
		if errors.As(err, &noOperator) {
			s.logger.Info("ticket left unassigned, no preferring operator",
				zap.String("ticket_id", ticket.ID),
				zap.String("platform_id", ticket.PlatformID))
			return ticket, nil
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.applyOutcome(ctx, ticket, snapshot, outcome, nil, candidates); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Reply appends a thread message and drives the matching status edge: an
// operator reply parks the ticket on the user, a user reply hands it back,
// and any reply to a closed ticket reopens it toward the operator.
func (s *TicketService) Reply(ctx context.Context, actor *domain.User, ticketID, body string) (*domain.Ticket, *domain.Message, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	snapshot := snapshotOf(ticket)

	target := replyTarget(snapshot, actor)
	candidates, err := s.userPlatforms.ListOperatorsForPlatform(ctx, ticket.PlatformID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	outcome, err := lifecycle.ProposeTransition(snapshot,
		lifecycle.Change{Status: &target}, actorOf(actor), candidates, time.Now())
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	message := &domain.Message{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		AuthorID:  actor.ID,
		Body:      strings.TrimSpace(body),
		CreatedAt: outcome.Timestamp,
	}
	if err := s.applyOutcome(ctx, ticket, snapshot, outcome, message, candidates); err != nil {
		return nil, nil, err
	}
	return ticket, message, nil
}

// CloseTicket closes the ticket. Only staff may close.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	snapshot := snapshotOf(ticket)

	target := domain.TicketStatusClosed
	outcome, err := lifecycle.ProposeTransition(snapshot,
		lifecycle.Change{Status: &target}, actorOf(actor), nil, time.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.applyOutcome(ctx, ticket, snapshot, outcome, nil, nil); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AssignTicket assigns or transfers the ticket. A nil operatorID requests
// auto-assignment (valid only while Unassigned); an explicit id performs a
// manual assignment or a transfer depending on the current status.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.User, ticketID string, operatorID *string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if operatorID != nil {
		operator, err := s.users.GetByID(ctx, *operatorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("operator", map[string]any{"user_id": *operatorID})
			}
			return nil, apperrors.MapError(err)
		}
		if !operator.Role.IsStaff() {
			return nil, apperrors.NewConflict("assignee is not an operator", map[string]any{"user_id": operator.ID})
		}
		if !operator.Active {
			return nil, apperrors.NewConflict("assignee inactive", map[string]any{"user_id": operator.ID})
		}
	}

	candidates, err := s.userPlatforms.ListOperatorsForPlatform(ctx, ticket.PlatformID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	snapshot := snapshotOf(ticket)
	outcome, err := lifecycle.ProposeTransition(snapshot,
		lifecycle.Change{Operator: operatorID}, actorOf(actor), candidates, time.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.applyOutcome(ctx, ticket, snapshot, outcome, nil, candidates); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket fetches a ticket with its thread and audit trail, enforcing
// access: creators see their own tickets, staff see all.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.Message, []domain.Edit, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, err
	}
	if ticket.CreatorID != actor.ID && !actor.Role.IsStaff() {
		return nil, nil, nil, apperrors.NewForbidden("access denied")
	}
	messages, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	edits, err := s.edits.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return ticket, messages, edits, nil
}

// ListTickets returns tickets visible to the actor.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		PlatformID:  filter.PlatformID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !actor.Role.IsStaff() {
		repoFilter.CreatorID = &actor.ID
	} else if filter.AssignedToMe {
		repoFilter.OperatorID = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// applyOutcome persists an accepted transition and its side effects in one
// transaction, then mutates the in-memory ticket and publishes the event.
func (s *TicketService) applyOutcome(ctx context.Context, ticket *domain.Ticket, snapshot lifecycle.Snapshot, outcome lifecycle.Outcome, message *domain.Message, candidates []string) error {
	edit, notifications := lifecycle.Emit(outcome, snapshot, candidates)

	updated := *ticket
	updated.Status = outcome.NewStatus
	updated.OperatorID = outcome.NewOperator
	if outcome.NewStatus == domain.TicketStatusClosed {
		closedAt := outcome.Timestamp
		updated.ClosedAt = &closedAt
	} else {
		updated.ClosedAt = nil
	}

	if err := s.store.ApplyTransition(ctx, outcome.OldStatus, repository.TransitionRecords{
		Ticket:        &updated,
		Edit:          edit,
		Notifications: notifications,
		Message:       message,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewConflict("ticket changed concurrently", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.MapError(err)
	}

	*ticket = updated
	s.metrics.RecordTransition(string(outcome.Kind))
	s.publishTransition(ctx, ticket, outcome, edit, notifications)
	return nil
}

func (s *TicketService) publishTransition(ctx context.Context, ticket *domain.Ticket, outcome lifecycle.Outcome, edit domain.Edit, notifications []domain.Notification) {
	if s.dispatcher == nil {
		return
	}
	recipients := make([]string, 0, len(notifications))
	for _, n := range notifications {
		recipients = append(recipients, n.UserID)
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketTransitioned,
		TicketID:  ticket.ID,
		Actor:     events.Actor{UserID: outcome.Actor.ID, Role: outcome.Actor.Role},
		Timestamp: outcome.Timestamp,
		Payload: events.TicketTransitionedPayload{
			Kind:        outcome.Kind,
			OldStatus:   outcome.OldStatus,
			NewStatus:   outcome.NewStatus,
			OperatorID:  outcome.NewOperator,
			EditID:      edit.ID,
			Recipients:  recipients,
			TicketTitle: ticket.Title,
			PlatformID:  ticket.PlatformID,
			ExternalKey: ticket.ExternalKey,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// replyTarget derives which edge a reply requests. The lifecycle engine still
// validates it against the table and the actor's role.
func replyTarget(snapshot lifecycle.Snapshot, actor *domain.User) domain.TicketStatus {
	if snapshot.Status == domain.TicketStatusClosed {
		return domain.TicketStatusWaitingOperator
	}
	if actor.ID == snapshot.CreatorID {
		return domain.TicketStatusWaitingOperator
	}
	return domain.TicketStatusWaitingUser
}

func snapshotOf(ticket *domain.Ticket) lifecycle.Snapshot {
	return lifecycle.Snapshot{
		TicketID:   ticket.ID,
		Title:      ticket.Title,
		PlatformID: ticket.PlatformID,
		CreatorID:  ticket.CreatorID,
		OperatorID: ticket.OperatorID,
		Status:     ticket.Status,
	}
}

func actorOf(user *domain.User) lifecycle.Actor {
	return lifecycle.Actor{ID: user.ID, Role: user.Role}
}

func generateTicketKey() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
