package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// PlatformRepository encapsulates platform persistence.
type PlatformRepository interface {
	Create(ctx context.Context, platform *domain.Platform) error
	Update(ctx context.Context, platform *domain.Platform) error
	GetByID(ctx context.Context, id string) (*domain.Platform, error)
	List(ctx context.Context, limit, offset int) ([]domain.Platform, error)
}

type platformRepository struct {
	pool *pgxpool.Pool
}

// NewPlatformRepository instantiates repository.
func NewPlatformRepository(pool *pgxpool.Pool) PlatformRepository {
	return &platformRepository{pool: pool}
}

func (r *platformRepository) Create(ctx context.Context, platform *domain.Platform) error {
	const query = `
        INSERT INTO platforms (name, repository_url)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		platform.Name,
		platform.RepositoryURL,
	).Scan(&platform.ID, &platform.CreatedAt, &platform.UpdatedAt)
}

func (r *platformRepository) Update(ctx context.Context, platform *domain.Platform) error {
	const query = `
        UPDATE platforms SET name=$1, repository_url=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, platform.Name, platform.RepositoryURL, platform.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *platformRepository) GetByID(ctx context.Context, id string) (*domain.Platform, error) {
	const query = `
        SELECT id, name, repository_url, created_at, updated_at
        FROM platforms WHERE id=$1`
	var platform domain.Platform
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&platform.ID,
		&platform.Name,
		&platform.RepositoryURL,
		&platform.CreatedAt,
		&platform.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *platformRepository) List(ctx context.Context, limit, offset int) ([]domain.Platform, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, name, repository_url, created_at, updated_at
        FROM platforms ORDER BY name ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Platform
	for rows.Next() {
		var platform domain.Platform
		if err := rows.Scan(
			&platform.ID,
			&platform.Name,
			&platform.RepositoryURL,
			&platform.CreatedAt,
			&platform.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, platform)
	}
	return result, rows.Err()
}
