package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// CallHistoryRepository stores audit entries.
type CallHistoryRepository interface {
	Create(ctx context.Context, history *domain.CallHistory) error
	ListByCall(ctx context.Context, callID string, limit, offset int) ([]domain.CallHistory, error)
}

type callHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewCallHistoryRepository builds repository.
func NewCallHistoryRepository(pool *pgxpool.Pool) CallHistoryRepository {
	return &callHistoryRepository{pool: pool}
}

func (r *callHistoryRepository) Create(ctx context.Context, history *domain.CallHistory) error {
	const query = `
        INSERT INTO call_history (call_id, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.CallID,
		history.ChangedByID,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *callHistoryRepository) ListByCall(ctx context.Context, callID string, limit, offset int) ([]domain.CallHistory, error) {
	const query = `
        SELECT id, call_id, changed_by_id, change_type, old_value, new_value, created_at
        FROM call_history WHERE call_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	limit, offset = pageBounds(limit, offset)
	rows, err := r.pool.Query(ctx, query, callID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CallHistory
	for rows.Next() {
		var history domain.CallHistory
		if err := rows.Scan(
			&history.ID,
			&history.CallID,
			&history.ChangedByID,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
