package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/navigation"
	"github.com/helpdeskhq/helpdesk/internal/service"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// AuthHandler serves login, password flows and the caller's own profile.
type AuthHandler struct {
	auth      *service.AuthService
	validator *Validator
	menu      *navigation.Catalog
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, menu *navigation.Catalog, validator *Validator) *AuthHandler {
	return &AuthHandler{auth: authService, menu: menu, validator: validator}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	self := &auth.Principal{User: res.User, Role: res.Role}
	return respondData(c, dto.AuthResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Role:      res.Role.String(),
		User:      userResponse(service.ViewUser(res.User, self)),
	})
}

// RequestPasswordReset POST /auth/password/reset/request.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "reset_requested"}})
}

// ConfirmPasswordReset POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return respondData(c, fiber.Map{"status": "password_reset"})
}

// ChangePassword POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), p, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return respondData(c, fiber.Map{"status": "password_changed"})
}

// Me GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return respondData(c, dto.MeResponse{
		User: userResponse(service.ViewUser(p.User, p)),
		Role: p.Role.String(),
	})
}

// Menu GET /me/menu.
func (h *AuthHandler) Menu(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return respondData(c, h.menu.MenuFor(p.Role))
}

// CanNavigate GET /me/navigation?path=/companies answers whether the caller may open a view.
func (h *AuthHandler) CanNavigate(c *fiber.Ctx) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	path := c.Query("path")
	if path == "" {
		return apperrors.NewValidationError("path is required", map[string]any{"path": "is required"})
	}
	return respondData(c, dto.NavigationCheckResponse{Path: path, Allowed: h.menu.Allows(path, p.Role)})
}
