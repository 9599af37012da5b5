package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func testErrorHandler(c *fiber.Ctx, err error) error {
	de := apperrors.ToDomainError(err)
	return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
}

func newProtectedApp(t *testing.T, users stubUsers, metrics *observability.Metrics, guards ...fiber.Handler) (*fiber.App, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager("test-secret", 5)
	mw := NewAuthMiddleware(tokens, users, zaptest.NewLogger(t), metrics)

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	handlers := append([]fiber.Handler{mw.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		fromLocals, ok := PrincipalFromLocals(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		fromCtx, ok := PrincipalFromContext(c.UserContext())
		if !ok || fromCtx != fromLocals {
			return fiber.ErrInternalServerError
		}
		return c.JSON(fiber.Map{"user_id": fromLocals.UserID(), "role": fromLocals.Role})
	})
	app.Get("/protected", handlers...)
	return app, tokens
}

func doGet(t *testing.T, app *fiber.App, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestAuthMiddleware_ResolvesRole(t *testing.T) {
	users := stubUsers{"u1": {ID: "u1", Active: true, Roles: []domain.Role{domain.RoleOperator, domain.RoleAdmin}}}
	metrics := observability.NewMetrics()
	app, tokens := newProtectedApp(t, users, metrics)

	token, _, err := tokens.GenerateToken("u1")
	require.NoError(t, err)

	status, body := doGet(t, app, token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "ADMIN", body["role"])
	count, err := testutil.GatherAndCount(metrics.Registry(), "helpdesk_role_resolutions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuthMiddleware_RejectsOperatorClient(t *testing.T) {
	users := stubUsers{"u1": {ID: "u1", Active: true, Roles: []domain.Role{domain.RoleOperator, domain.RoleClient}}}
	app, tokens := newProtectedApp(t, users, nil)

	token, _, err := tokens.GenerateToken("u1")
	require.NoError(t, err)

	status, body := doGet(t, app, token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INVALID_ROLE_STATE", errorCode(body))
}

func TestAuthMiddleware_RejectsEmptyRoles(t *testing.T) {
	users := stubUsers{"u1": {ID: "u1", Active: true}}
	app, tokens := newProtectedApp(t, users, nil)

	token, _, err := tokens.GenerateToken("u1")
	require.NoError(t, err)

	status, body := doGet(t, app, token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INVALID_ROLE_STATE", errorCode(body))
}

func TestAuthMiddleware_Unauthenticated(t *testing.T) {
	users := stubUsers{"inactive": {ID: "inactive", Roles: []domain.Role{domain.RoleClient}}}
	app, tokens := newProtectedApp(t, users, nil)

	inactiveToken, _, err := tokens.GenerateToken("inactive")
	require.NoError(t, err)
	ghostToken, _, err := tokens.GenerateToken("ghost")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing header": "",
		"garbage token":  "not-a-jwt",
		"unknown user":   ghostToken,
		"inactive user":  inactiveToken,
	} {
		t.Run(name, func(t *testing.T) {
			status, body := doGet(t, app, token)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHORIZED", errorCode(body))
		})
	}
}
