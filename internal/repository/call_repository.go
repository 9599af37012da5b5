package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// CallFilter captures call search parameters.
type CallFilter struct {
	ClientID    *string
	CompanyID   *string
	OperatorID  *string
	Unassigned  bool
	Statuses    []domain.CallStatus
	Priorities  []domain.CallPriority
	Tag         *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CallRepository encapsulates call persistence.
type CallRepository interface {
	Create(ctx context.Context, call *domain.Call) error
	Update(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, id string) (*domain.Call, error)
	GetByProtocol(ctx context.Context, protocol string) (*domain.Call, error)
	ListWithFilter(ctx context.Context, filter CallFilter) ([]domain.Call, error)
}

type callRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository instantiates repository.
func NewCallRepository(pool *pgxpool.Pool) CallRepository {
	return &callRepository{pool: pool}
}

const callColumns = `id, protocol, company_id, client_id, operator_id, title, description,
               status, priority, tags, created_at, updated_at, closed_at`

func (r *callRepository) Create(ctx context.Context, call *domain.Call) error {
	const query = `
        INSERT INTO calls (protocol, company_id, client_id, operator_id, title, description, status, priority, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		call.Protocol,
		call.CompanyID,
		call.ClientID,
		call.OperatorID,
		call.Title,
		call.Description,
		call.Status,
		call.Priority,
		nonNilTags(call.Tags),
	).Scan(&call.ID, &call.CreatedAt, &call.UpdatedAt)
}

func (r *callRepository) Update(ctx context.Context, call *domain.Call) error {
	const query = `
        UPDATE calls SET operator_id=$1, title=$2, description=$3,
            status=$4, priority=$5, tags=$6, closed_at=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		call.OperatorID,
		call.Title,
		call.Description,
		call.Status,
		call.Priority,
		nonNilTags(call.Tags),
		call.ClosedAt,
		call.ID,
	).Scan(&call.UpdatedAt)
}

func (r *callRepository) GetByID(ctx context.Context, id string) (*domain.Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id=$1`, id))
}

func (r *callRepository) GetByProtocol(ctx context.Context, protocol string) (*domain.Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE protocol=$1`, protocol))
}

func (r *callRepository) ListWithFilter(ctx context.Context, filter CallFilter) ([]domain.Call, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if filter.OperatorID != nil {
		args = append(args, *filter.OperatorID)
		clauses = append(clauses, fmt.Sprintf("operator_id=$%d", len(args)))
	} else if filter.Unassigned {
		clauses = append(clauses, "operator_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Tag != nil && strings.TrimSpace(*filter.Tag) != "" {
		args = append(args, strings.TrimSpace(*filter.Tag))
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(protocol) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM calls WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		callColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *call)
	}
	return result, rows.Err()
}

func scanCall(row pgx.Row) (*domain.Call, error) {
	var call domain.Call
	if err := row.Scan(
		&call.ID,
		&call.Protocol,
		&call.CompanyID,
		&call.ClientID,
		&call.OperatorID,
		&call.Title,
		&call.Description,
		&call.Status,
		&call.Priority,
		&call.Tags,
		&call.CreatedAt,
		&call.UpdatedAt,
		&call.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &call, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
