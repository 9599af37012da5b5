package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	"github.com/helpdeskhq/helpdesk/internal/service"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// UsersHandler manages accounts of every role.
type UsersHandler struct {
	users     *service.UserService
	validator *Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, validator *Validator) *UsersHandler {
	return &UsersHandler{users: users, validator: validator}
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.Create(c.UserContext(), p, service.UserCreateInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Phone:          req.Phone,
		DocumentNumber: req.DocumentNumber,
		CompanyID:      req.CompanyID,
		Roles:          req.Roles,
	})
	if err != nil {
		return err
	}
	return respondCreated(c, userResponse(view))
}

// List GET /users?role=&company_id=&active=&q=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	filter := repository.UserFilter{
		CompanyID: optionalQuery(c, "company_id"),
		Active:    parseBool(c.Query("active")),
		Search:    strings.TrimSpace(c.Query("q")),
		Limit:     limit,
		Offset:    offset,
	}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid role filter", map[string]any{"role": raw})
		}
		filter.Role = &role
	}
	views, err := h.users.List(c.UserContext(), p, filter)
	if err != nil {
		return err
	}
	return respondData(c, userResponses(views))
}

// ListClients GET /clients.
func (h *UsersHandler) ListClients(c *fiber.Ctx) error {
	return h.listByRole(c, domain.RoleClient)
}

// ListOperators GET /operators.
func (h *UsersHandler) ListOperators(c *fiber.Ctx) error {
	return h.listByRole(c, domain.RoleOperator)
}

func (h *UsersHandler) listByRole(c *fiber.Ctx, role domain.Role) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	views, err := h.users.ListByRole(c.UserContext(), p, role, strings.TrimSpace(c.Query("q")), limit, offset)
	if err != nil {
		return err
	}
	return respondData(c, userResponses(views))
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "user")
	if err != nil {
		return err
	}
	view, err := h.users.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return respondData(c, userResponse(view))
}

// Update PATCH /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "user")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.UpdateProfile(c.UserContext(), p, id, service.UserUpdateInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		DocumentNumber: req.DocumentNumber,
		CompanyID:      req.CompanyID,
	})
	if err != nil {
		return err
	}
	return respondData(c, userResponse(view))
}

// UpdateMe PATCH /me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.UpdateProfile(c.UserContext(), p, p.UserID(), service.UserUpdateInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		DocumentNumber: req.DocumentNumber,
		CompanyID:      req.CompanyID,
	})
	if err != nil {
		return err
	}
	return respondData(c, userResponse(view))
}

// UpdateRoles PUT /users/:id/roles.
func (h *UsersHandler) UpdateRoles(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "user")
	if err != nil {
		return err
	}
	var req dto.UpdateRolesRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.UpdateRoles(c.UserContext(), p, id, req.Roles)
	if err != nil {
		return err
	}
	return respondData(c, userResponse(view))
}

// SetActive PUT /users/:id/active.
func (h *UsersHandler) SetActive(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id", "user")
	if err != nil {
		return err
	}
	var req dto.SetActiveRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.SetActive(c.UserContext(), p, id, *req.Active)
	if err != nil {
		return err
	}
	return respondData(c, userResponse(view))
}
