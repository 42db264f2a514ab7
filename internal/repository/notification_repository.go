package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// NotificationRepository reads and flips notifications. Inserts happen only
// inside transition transactions (see TransitionStore); the read flag is the
// one field mutated afterwards.
type NotificationRepository interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, user_id, message, is_read, created_at
        FROM notifications WHERE user_id=$1
        ORDER BY is_read ASC, created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.TicketID,
			&n.UserID,
			&n.Message,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND NOT is_read`
	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	const query = `
        UPDATE notifications SET is_read=TRUE
        WHERE id=$1 AND user_id=$2 AND NOT is_read`
	cmd, err := r.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	const query = `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
