package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/platform-desk/internal/config"
	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/events"
)

// WorkItem is the shape mirrored into Azure DevOps.
type WorkItem struct {
	TicketID    string
	ExternalKey string
	Title       string
	State       string
	OperatorID  *string
}

// WorkItemClient pushes work-item state to Azure DevOps. The concrete HTTP
// client lives outside this service; tests and dev setups use the logging
// stub below.
type WorkItemClient interface {
	UpsertWorkItem(ctx context.Context, item WorkItem) error
}

// WorkItemSyncService mirrors accepted ticket transitions into work items.
// Sync is best effort: a failed push is logged and the next transition of the
// ticket carries the state across anyway.
type WorkItemSyncService struct {
	client     WorkItemClient
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewWorkItemSyncService creates the service.
func NewWorkItemSyncService(client WorkItemClient, dispatcher events.Dispatcher, logger *zap.Logger) *WorkItemSyncService {
	return &WorkItemSyncService{client: client, dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to transition events.
func (s *WorkItemSyncService) RegisterHandlers() {
	if s.dispatcher == nil || s.client == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketTransitioned, s.handleTicketTransitioned)
}

func (s *WorkItemSyncService) handleTicketTransitioned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketTransitionedPayload)
	if !ok {
		return nil
	}
	item := WorkItem{
		TicketID:    event.TicketID,
		ExternalKey: payload.ExternalKey,
		Title:       payload.TicketTitle,
		State:       workItemState(payload.NewStatus),
		OperatorID:  payload.OperatorID,
	}
	if err := s.client.UpsertWorkItem(ctx, item); err != nil {
		s.logger.Warn("work item sync failed",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}

// workItemState maps ticket statuses onto the work-item state vocabulary.
func workItemState(status domain.TicketStatus) string {
	switch status {
	case domain.TicketStatusUnassigned:
		return "New"
	case domain.TicketStatusWaitingOperator, domain.TicketStatusWaitingUser:
		return "Active"
	case domain.TicketStatusClosed:
		return "Closed"
	default:
		return "New"
	}
}

// loggingWorkItemClient is the default stub: it logs the push instead of
// calling Azure DevOps.
type loggingWorkItemClient struct {
	cfg    config.AzureConfig
	logger *zap.Logger
}

// NewLoggingWorkItemClient builds the stub client.
func NewLoggingWorkItemClient(cfg config.AzureConfig, logger *zap.Logger) WorkItemClient {
	return &loggingWorkItemClient{cfg: cfg, logger: logger}
}

func (c *loggingWorkItemClient) UpsertWorkItem(_ context.Context, item WorkItem) error {
	c.logger.Debug("upsertWorkItemStub",
		zap.String("organization", c.cfg.Organization),
		zap.String("project", c.cfg.Project),
		zap.String("ticket_id", item.TicketID),
		zap.String("state", item.State))
	return nil
}
