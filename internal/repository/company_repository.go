package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// CompanyFilter narrows company listings.
type CompanyFilter struct {
	IncludeInactive bool
	Search          string
	Limit           int
	Offset          int
}

// CompanyRepository persists customer companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	GetByTaxID(ctx context.Context, taxID string) (*domain.Company, error)
	List(ctx context.Context, filter CompanyFilter) ([]domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository instantiates the repository.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

const companyColumns = `id, name, trade_name, tax_id, email, phone, active, created_at, updated_at`

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (name, trade_name, tax_id, email, phone, active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		company.Name,
		company.TradeName,
		company.TaxID,
		company.Email,
		company.Phone,
		company.Active,
	).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `
        UPDATE companies SET name=$1, trade_name=$2, tax_id=$3, email=$4, phone=$5, active=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		company.Name,
		company.TradeName,
		company.TaxID,
		company.Email,
		company.Phone,
		company.Active,
		company.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, id))
}

func (r *companyRepository) GetByTaxID(ctx context.Context, taxID string) (*domain.Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE tax_id=$1`, taxID))
}

func (r *companyRepository) List(ctx context.Context, filter CompanyFilter) ([]domain.Company, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if !filter.IncludeInactive {
		clauses = append(clauses, "active = TRUE")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(trade_name) LIKE %s OR tax_id LIKE %s)", placeholder, placeholder, placeholder))
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM companies WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		companyColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *company)
	}
	return result, rows.Err()
}

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var company domain.Company
	if err := row.Scan(
		&company.ID,
		&company.Name,
		&company.TradeName,
		&company.TaxID,
		&company.Email,
		&company.Phone,
		&company.Active,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}
