package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// CallMessageRepository manages call thread messages.
type CallMessageRepository interface {
	Create(ctx context.Context, msg *domain.CallMessage) error
	ListByCall(ctx context.Context, callID string) ([]domain.CallMessage, error)
}

type callMessageRepository struct {
	pool *pgxpool.Pool
}

// NewCallMessageRepository builds repository.
func NewCallMessageRepository(pool *pgxpool.Pool) CallMessageRepository {
	return &callMessageRepository{pool: pool}
}

func (r *callMessageRepository) Create(ctx context.Context, msg *domain.CallMessage) error {
	const query = `
        INSERT INTO call_messages (call_id, author_id, author_role, message_type, body)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.CallID,
		msg.AuthorID,
		msg.AuthorRole.String(),
		msg.MessageType,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *callMessageRepository) ListByCall(ctx context.Context, callID string) ([]domain.CallMessage, error) {
	const query = `
        SELECT id, call_id, author_id, author_role, message_type, body, created_at
        FROM call_messages WHERE call_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CallMessage
	for rows.Next() {
		var (
			msg  domain.CallMessage
			role string
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.CallID,
			&msg.AuthorID,
			&role,
			&msg.MessageType,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if msg.AuthorRole, err = domain.ParseRole(role); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
