package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserPlatformRepository stores operator platform preferences. The candidate
// listing is the auto-assignment input and must keep a stable order.
type UserPlatformRepository interface {
	Add(ctx context.Context, userID, platformID string) error
	Remove(ctx context.Context, userID, platformID string) error
	// ListOperatorsForPlatform returns ids of active operators preferring the
	// platform, in ascending id order.
	ListOperatorsForPlatform(ctx context.Context, platformID string) ([]string, error)
	ListPlatformsForUser(ctx context.Context, userID string) ([]string, error)
}

type userPlatformRepository struct {
	pool *pgxpool.Pool
}

// NewUserPlatformRepository builds repository.
func NewUserPlatformRepository(pool *pgxpool.Pool) UserPlatformRepository {
	return &userPlatformRepository{pool: pool}
}

func (r *userPlatformRepository) Add(ctx context.Context, userID, platformID string) error {
	const query = `
        INSERT INTO user_platforms (user_id, platform_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, platform_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, platformID)
	return err
}

func (r *userPlatformRepository) Remove(ctx context.Context, userID, platformID string) error {
	const query = `DELETE FROM user_platforms WHERE user_id=$1 AND platform_id=$2`
	cmd, err := r.pool.Exec(ctx, query, userID, platformID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userPlatformRepository) ListOperatorsForPlatform(ctx context.Context, platformID string) ([]string, error) {
	const query = `
        SELECT up.user_id
        FROM user_platforms up
        JOIN users u ON u.id = up.user_id
        WHERE up.platform_id=$1 AND u.active AND u.role IN ('OPERATOR','ADMIN')
        ORDER BY up.user_id ASC`
	return r.scanIDs(ctx, query, platformID)
}

func (r *userPlatformRepository) ListPlatformsForUser(ctx context.Context, userID string) ([]string, error) {
	const query = `
        SELECT platform_id FROM user_platforms WHERE user_id=$1 ORDER BY platform_id ASC`
	return r.scanIDs(ctx, query, userID)
}

func (r *userPlatformRepository) scanIDs(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
