package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// EditRepository reads the audit trail. Edits are only ever written inside a
// transition transaction (see TransitionStore).
type EditRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Edit, error)
}

type editRepository struct {
	pool *pgxpool.Pool
}

// NewEditRepository builds repository.
func NewEditRepository(pool *pgxpool.Pool) EditRepository {
	return &editRepository{pool: pool}
}

func (r *editRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Edit, error) {
	const query = `
        SELECT id, ticket_id, user_id, description, old_status, new_status, created_at
        FROM edits WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Edit
	for rows.Next() {
		var edit domain.Edit
		if err := rows.Scan(
			&edit.ID,
			&edit.TicketID,
			&edit.UserID,
			&edit.Description,
			&edit.OldStatus,
			&edit.NewStatus,
			&edit.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, edit)
	}
	return result, rows.Err()
}
