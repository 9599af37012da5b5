package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	"github.com/helpdeskhq/helpdesk/internal/service"
)

// CompaniesHandler manages customer companies.
type CompaniesHandler struct {
	companies *service.CompanyService
	validator *Validator
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(companies *service.CompanyService, validator *Validator) *CompaniesHandler {
	return &CompaniesHandler{companies: companies, validator: validator}
}

// Create POST /companies.
func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCompanyRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Create(c.UserContext(), p, service.CompanyInput{
		Name:      &req.Name,
		TradeName: &req.TradeName,
		TaxID:     &req.TaxID,
		Email:     &req.Email,
		Phone:     &req.Phone,
	})
	if err != nil {
		return err
	}
	return respondCreated(c, companyResponse(company))
}

// Update PATCH /companies/:id.
func (h *CompaniesHandler) Update(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "company")
	if err != nil {
		return err
	}
	var req dto.UpdateCompanyRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Update(c.UserContext(), p, id, service.CompanyInput{
		Name:      req.Name,
		TradeName: req.TradeName,
		TaxID:     req.TaxID,
		Email:     req.Email,
		Phone:     req.Phone,
		Active:    req.Active,
	})
	if err != nil {
		return err
	}
	return respondData(c, companyResponse(company))
}

// Get GET /companies/:id.
func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "company")
	if err != nil {
		return err
	}
	company, err := h.companies.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return respondData(c, companyResponse(company))
}

// List GET /companies?q=&include_inactive=.
func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	filter := repository.CompanyFilter{
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	}
	if inactive := parseBool(c.Query("include_inactive")); inactive != nil {
		filter.IncludeInactive = *inactive
	}
	companies, err := h.companies.List(c.UserContext(), p, filter)
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		items = append(items, companyResponse(&companies[i]))
	}
	return respondData(c, items)
}

// Lookup GET /companies/lookup/:taxID prefills a company from the public registry.
func (h *CompaniesHandler) Lookup(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	record, err := h.companies.Lookup(c.UserContext(), p, c.Params("taxID"))
	if err != nil {
		return err
	}
	return respondData(c, record)
}

