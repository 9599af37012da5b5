package service

import (
	"context"
	"strings"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// RegistryLookup resolves a tax id against the public company registry.
type RegistryLookup interface {
	Lookup(ctx context.Context, taxID string) (*domain.RegistryCompany, error)
}

// CompanyService manages customer companies.
type CompanyService struct {
	companies repository.CompanyRepository
	registry  RegistryLookup
}

// CompanyDependencies bundles collaborators.
type CompanyDependencies struct {
	CompanyRepo repository.CompanyRepository
	Registry    RegistryLookup
}

// CompanyInput carries company fields. Nil pointers are left unchanged on update.
type CompanyInput struct {
	Name      *string
	TradeName *string
	TaxID     *string
	Email     *string
	Phone     *string
	Active    *bool
}

// NewCompanyService constructs the service.
func NewCompanyService(deps CompanyDependencies) *CompanyService {
	return &CompanyService{companies: deps.CompanyRepo, registry: deps.Registry}
}

// Create registers a company with a unique, normalized tax id.
func (s *CompanyService) Create(ctx context.Context, actor *auth.Principal, input CompanyInput) (*domain.Company, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" || input.TaxID == nil {
		return nil, apperrors.NewValidationError("name and tax_id are required", nil)
	}
	company := &domain.Company{Active: true}
	if err := s.apply(ctx, company, input); err != nil {
		return nil, err
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// Update edits a company.
func (s *CompanyService) Update(ctx context.Context, actor *auth.Principal, id string, input CompanyInput) (*domain.Company, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "company", map[string]any{"company_id": id})
	}
	if err := s.apply(ctx, company, input); err != nil {
		return nil, err
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// Get returns a company. Clients may only read their own.
func (s *CompanyService) Get(ctx context.Context, viewer *auth.Principal, id string) (*domain.Company, error) {
	if err := requirePrincipal(viewer); err != nil {
		return nil, err
	}
	if !viewer.Role.CanManageCalls() {
		own := viewer.CompanyID()
		if own == nil || *own != id {
			return nil, apperrors.NewForbidden("access denied")
		}
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "company", map[string]any{"company_id": id})
	}
	return company, nil
}

// List returns companies for the operator tier and above.
func (s *CompanyService) List(ctx context.Context, viewer *auth.Principal, filter repository.CompanyFilter) ([]domain.Company, error) {
	if err := requirePrincipal(viewer); err != nil {
		return nil, err
	}
	if !viewer.Role.CanManageCalls() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if !viewer.Role.CanAdminister() {
		filter.IncludeInactive = false
	}
	companies, err := s.companies.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return companies, nil
}

// Lookup prefills company data from the public registry.
func (s *CompanyService) Lookup(ctx context.Context, actor *auth.Principal, taxID string) (*domain.RegistryCompany, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if s.registry == nil {
		return nil, apperrors.NewBadGateway("company registry not configured", nil)
	}
	return s.registry.Lookup(ctx, taxID)
}

func (s *CompanyService) apply(ctx context.Context, company *domain.Company, input CompanyInput) error {
	if input.TaxID != nil {
		taxID, err := domain.NormalizeTaxID(*input.TaxID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if taxID != company.TaxID {
			existing, err := s.companies.GetByTaxID(ctx, taxID)
			if err == nil && existing.ID != company.ID {
				return apperrors.NewConflict("tax id already registered", map[string]any{"tax_id": taxID})
			}
			if err != nil && !isNotFound(err) {
				return apperrors.MapError(err)
			}
			company.TaxID = taxID
		}
	}
	if input.Name != nil {
		company.Name = strings.TrimSpace(*input.Name)
	}
	if input.TradeName != nil {
		company.TradeName = strings.TrimSpace(*input.TradeName)
	}
	if input.Email != nil {
		company.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Phone != nil {
		company.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Active != nil {
		company.Active = *input.Active
	}
	return nil
}
