package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/platform-desk/internal/domain"
)

// TransitionRecords bundles everything an accepted transition must persist.
type TransitionRecords struct {
	Ticket        *domain.Ticket
	Edit          domain.Edit
	Notifications []domain.Notification
	// Message is the reply that triggered the transition, when there is one.
	Message *domain.Message
}

// TransitionStore writes a transition's rows in one transaction so other
// readers never observe a partial application.
type TransitionStore interface {
	// CreateTicket inserts a new ticket together with its creation edit and
	// operator notifications.
	CreateTicket(ctx context.Context, records TransitionRecords) error
	// ApplyTransition updates the ticket row and inserts the edit,
	// notification and optional message rows. The update is guarded by the
	// snapshot's old status, so a stale snapshot fails with pgx.ErrNoRows
	// instead of racing a concurrent transition.
	ApplyTransition(ctx context.Context, oldStatus domain.TicketStatus, records TransitionRecords) error
}

type transitionStore struct {
	pool *pgxpool.Pool
}

// NewTransitionStore builds the store.
func NewTransitionStore(pool *pgxpool.Pool) TransitionStore {
	return &transitionStore{pool: pool}
}

func (s *transitionStore) CreateTicket(ctx context.Context, records TransitionRecords) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ticket := records.Ticket
		const query = `
            INSERT INTO tickets (id, external_key, platform_id, creator_user_id, operator_user_id, type, title, description, status, priority)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
            RETURNING created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			ticket.ID,
			ticket.ExternalKey,
			ticket.PlatformID,
			ticket.CreatorID,
			ticket.OperatorID,
			ticket.Type,
			ticket.Title,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
		).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}
		return s.insertSideEffects(ctx, tx, records)
	})
}

func (s *transitionStore) ApplyTransition(ctx context.Context, oldStatus domain.TicketStatus, records TransitionRecords) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ticket := records.Ticket
		const query = `
            UPDATE tickets SET operator_user_id=$1, status=$2, closed_at=$3, updated_at=NOW()
            WHERE id=$4 AND status=$5`
		cmd, err := tx.Exec(ctx, query,
			ticket.OperatorID,
			ticket.Status,
			ticket.ClosedAt,
			ticket.ID,
			oldStatus,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return s.insertSideEffects(ctx, tx, records)
	})
}

func (s *transitionStore) insertSideEffects(ctx context.Context, tx pgx.Tx, records TransitionRecords) error {
	edit := records.Edit
	const editQuery = `
        INSERT INTO edits (id, ticket_id, user_id, description, old_status, new_status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := tx.Exec(ctx, editQuery,
		edit.ID,
		edit.TicketID,
		edit.UserID,
		edit.Description,
		edit.OldStatus,
		edit.NewStatus,
		edit.CreatedAt,
	); err != nil {
		return err
	}

	const notificationQuery = `
        INSERT INTO notifications (id, ticket_id, user_id, message, is_read, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	for _, n := range records.Notifications {
		if _, err := tx.Exec(ctx, notificationQuery,
			n.ID,
			n.TicketID,
			n.UserID,
			n.Message,
			n.IsRead,
			n.CreatedAt,
		); err != nil {
			return err
		}
	}

	if records.Message != nil {
		msg := records.Message
		const messageQuery = `
            INSERT INTO messages (id, ticket_id, author_user_id, body, created_at)
            VALUES ($1,$2,$3,$4,$5)`
		if _, err := tx.Exec(ctx, messageQuery,
			msg.ID,
			msg.TicketID,
			msg.AuthorID,
			msg.Body,
			msg.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *transitionStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
