package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

func guardedApp(principal *Principal, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		if principal != nil {
			setPrincipal(c, principal)
		}
		return c.Next()
	}, guard, func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func statusFor(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name    string
		role    *domain.Role
		allowed []domain.Role
		want    int
	}{
		{name: "no principal", allowed: []domain.Role{domain.RoleClient}, want: http.StatusUnauthorized},
		{name: "allowed", role: rolePtr(domain.RoleOperator), allowed: []domain.Role{domain.RoleOperator, domain.RoleAdmin}, want: http.StatusNoContent},
		{name: "not in allow-list", role: rolePtr(domain.RoleMaster), allowed: []domain.Role{domain.RoleClient}, want: http.StatusForbidden},
		{name: "empty allow-list", role: rolePtr(domain.RoleClient), want: http.StatusNoContent},
		{name: "unknown role", role: rolePtr(domain.RoleUnknown), allowed: []domain.Role{domain.RoleClient}, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal *Principal
			if tt.role != nil {
				principal = &Principal{User: &domain.User{ID: "u"}, Role: *tt.role}
			}
			assert.Equal(t, tt.want, statusFor(t, guardedApp(principal, RequireRoles(tt.allowed...))))
		})
	}
}

func TestRequireAtLeast(t *testing.T) {
	operator := &Principal{User: &domain.User{ID: "u"}, Role: domain.RoleOperator}
	assert.Equal(t, http.StatusNoContent, statusFor(t, guardedApp(operator, RequireAtLeast(domain.RoleOperator))))
	assert.Equal(t, http.StatusForbidden, statusFor(t, guardedApp(operator, RequireAtLeast(domain.RoleAdmin))))
	assert.Equal(t, http.StatusUnauthorized, statusFor(t, guardedApp(nil, RequireAtLeast(domain.RoleClient))))
}

func TestRequireAuthenticated(t *testing.T) {
	client := &Principal{User: &domain.User{ID: "u"}, Role: domain.RoleClient}
	assert.Equal(t, http.StatusNoContent, statusFor(t, guardedApp(client, RequireAuthenticated())))
	assert.Equal(t, http.StatusUnauthorized, statusFor(t, guardedApp(nil, RequireAuthenticated())))
}

func rolePtr(r domain.Role) *domain.Role { return &r }
