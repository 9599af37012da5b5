package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role      *domain.Role
	CompanyID *string
	Active    *bool
	Search    string
	Limit     int
	Offset    int
}

// UserRepository defines persistence access for users of every role.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, phone, document_number, company_id, roles, active, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, phone, document_number, company_id, roles, active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.DocumentNumber,
		user.CompanyID,
		user.RoleLabels(),
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, phone=$4, document_number=$5,
            company_id=$6, roles=$7, active=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.DocumentNumber,
		user.CompanyID,
		user.RoleLabels(),
		user.Active,
		user.ID,
	).Scan(&user.UpdatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, filter.Role.String())
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(roles)", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(email) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

// scanUser parses the stored role labels at the boundary; unknown labels fail the read.
func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user   domain.User
		labels []string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.DocumentNumber,
		&user.CompanyID,
		&labels,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	roles, err := domain.ParseRoles(labels)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	user.Roles = roles
	return &user, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
