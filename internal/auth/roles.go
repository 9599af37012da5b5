package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/domain"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal was attached by AuthMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromLocals(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRoles admits only principals whose effective role is in the allow-list.
// An empty allow-list admits any authenticated principal.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	var allowedSet [domain.RoleMaster + 1]bool
	for _, role := range allowed {
		if role.Valid() {
			allowedSet[role] = true
		}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromLocals(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		if !principal.Role.Valid() || !allowedSet[principal.Role] {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAtLeast admits principals whose effective role is min or higher.
func RequireAtLeast(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromLocals(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Role.AtLeast(min) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
