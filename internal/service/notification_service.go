package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/events"
	"github.com/spec-kit/platform-desk/internal/repository"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// NotificationService exposes the notification read API and keeps per-user
// unread counters in Redis. Postgres stays the source of truth; a lost
// counter is rebuilt from a SQL count on the next read.
type NotificationService struct {
	notifications repository.NotificationRepository
	redis         *redis.Client
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NewNotificationService creates the service. The redis client may be nil,
// in which case every count falls through to SQL.
func NewNotificationService(notifications repository.NotificationRepository, redisClient *redis.Client, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		redis:         redisClient,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// List returns the user's notifications, unread first.
func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	items, err := s.notifications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UnreadCount returns the user's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, unreadKey(userID)).Result()
		if err == nil {
			if count, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
				return count, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("unread counter read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.setCounter(ctx, userID, count)
	return count, nil
}

// MarkRead flips one notification to read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	s.adjustCounter(ctx, userID, -1)
	return nil
}

// MarkAllRead flips every unread notification of the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.setCounter(ctx, userID, 0)
	return count, nil
}

// RegisterHandlers subscribes to transition events to keep unread counters
// in step with the notifications each transition inserted.
func (s *NotificationService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketTransitioned, s.handleTicketTransitioned)
}

func (s *NotificationService) handleTicketTransitioned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketTransitionedPayload)
	if !ok {
		return nil
	}
	for _, userID := range payload.Recipients {
		s.adjustCounter(ctx, userID, 1)
	}
	s.logger.Debug("notifications recorded",
		zap.String("ticket_id", event.TicketID),
		zap.String("kind", string(payload.Kind)),
		zap.Int("recipients", len(payload.Recipients)))
	return nil
}

func (s *NotificationService) adjustCounter(ctx context.Context, userID string, delta int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.IncrBy(ctx, unreadKey(userID), delta).Err(); err != nil {
		s.logger.Warn("unread counter update failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) setCounter(ctx context.Context, userID string, count int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, unreadKey(userID), count, 0).Err(); err != nil {
		s.logger.Warn("unread counter set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notif:unread:%s", userID)
}
