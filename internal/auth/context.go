package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

const principalKey = "auth_principal"

type principalCtxKey struct{}

// Principal represents the authenticated caller and the role resolved for this request.
type Principal struct {
	User *domain.User
	Role domain.Role
}

// UserID returns the caller's id, or "" for a nil principal.
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

// CompanyID returns the caller's company, if any.
func (p *Principal) CompanyID() *string {
	if p == nil || p.User == nil {
		return nil
	}
	return p.User.CompanyID
}

// IsClient reports whether the effective role is CLIENT.
func (p *Principal) IsClient() bool {
	return p != nil && p.Role == domain.RoleClient
}

// WithPrincipal stores the principal in ctx for service-layer code.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the principal placed by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok && p != nil
}

// PrincipalFromLocals retrieves the authenticated caller from the Fiber request.
func PrincipalFromLocals(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}

func setPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
	c.SetUserContext(WithPrincipal(c.UserContext(), p))
}
