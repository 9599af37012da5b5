package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helpdeskhq/helpdesk/internal/api/http/handlers"
	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/config"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/navigation"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	"github.com/helpdeskhq/helpdesk/internal/service"
)

// stubUserRepo serves lookups from memory. Methods the routes under test never
// reach are left to the embedded interface.
type stubUserRepo struct {
	repository.UserRepository
	users map[string]*domain.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	metrics := observability.NewMetrics()
	companyID := "11111111-1111-1111-1111-111111111111"
	users := &stubUserRepo{users: map[string]*domain.User{
		"client":   {ID: "client", Email: "client@example.com", CompanyID: &companyID, Roles: []domain.Role{domain.RoleClient}, Active: true},
		"operator": {ID: "operator", Email: "op@example.com", Roles: []domain.Role{domain.RoleOperator}, Active: true},
	}}

	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, service.AuthDependencies{UserRepo: users})
	menu, err := navigation.Default()
	require.NoError(t, err)
	validator := handlers.NewValidator()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-api", "test", nil),
		Auth:           handlers.NewAuthHandler(authService, menu, validator),
		Users:          handlers.NewUsersHandler(service.NewUserService(service.UserDependencies{UserRepo: users}), validator),
		Companies:      handlers.NewCompaniesHandler(service.NewCompanyService(service.CompanyDependencies{}), validator),
		Calls:          handlers.NewCallsHandler(service.NewCallService(service.CallDependencies{UserRepo: users}), validator),
		Chat:           handlers.NewChatHandler(service.NewChatService(service.ChatDependencies{}), validator),
		Dashboard:      handlers.NewDashboardHandler(service.NewDashboardService(nil)),
		Knowledge:      handlers.NewKnowledgeHandler(service.NewKnowledgeService(nil), validator),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), users, logger, metrics),
		Metrics:        metrics,
	})
	return &testServer{app: app, tokens: authService.TokenManager(), metrics: metrics}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsResp, err := srv.app.Test(req)
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
	assert.Contains(t, string(raw), "helpdesk_http_requests_total")
}

func TestRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/me", "/calls", "/chat/sessions", "/dashboard/summary", "/knowledge"} {
		resp, body := srv.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "UNAUTHORIZED", errorCode(body), path)
	}
}

func TestRoutes_RoleGuards(t *testing.T) {
	srv := newTestServer(t)
	client := srv.token(t, "client")
	operator := srv.token(t, "operator")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{name: "client cannot list users", method: http.MethodGet, path: "/users", token: client, status: http.StatusForbidden},
		{name: "operator cannot list users", method: http.MethodGet, path: "/users", token: operator, status: http.StatusForbidden},
		{name: "client cannot browse clients", method: http.MethodGet, path: "/clients", token: client, status: http.StatusForbidden},
		{name: "operator cannot list operators", method: http.MethodGet, path: "/operators", token: operator, status: http.StatusForbidden},
		{name: "operator cannot open calls", method: http.MethodPost, path: "/calls", token: operator, status: http.StatusForbidden},
		{name: "operator cannot request chat", method: http.MethodPost, path: "/chat/sessions", token: operator, status: http.StatusForbidden},
		{name: "client cannot see chat queue", method: http.MethodGet, path: "/chat/queue", token: client, status: http.StatusForbidden},
		{name: "client cannot take calls", method: http.MethodPost, path: "/calls/11111111-1111-1111-1111-111111111111/take", token: client, status: http.StatusForbidden},
		{name: "operator cannot publish articles", method: http.MethodPost, path: "/knowledge", token: operator, status: http.StatusForbidden},
		{name: "operator cannot create companies", method: http.MethodPost, path: "/companies", token: operator, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.do(t, tt.method, tt.path, tt.token, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "FORBIDDEN", errorCode(body))
		})
	}
}

func TestRoutes_MeAndMenu(t *testing.T) {
	srv := newTestServer(t)
	client := srv.token(t, "client")

	resp, body := srv.do(t, http.MethodGet, "/me", client, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "CLIENT", data["role"])

	resp, body = srv.do(t, http.MethodGet, "/me/menu", client, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ids []string
	for _, item := range body["data"].([]any) {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	assert.Contains(t, ids, "calls")
	assert.NotContains(t, ids, "users")
	assert.NotContains(t, ids, "registry")

	_, body = srv.do(t, http.MethodGet, "/me/navigation?path=/companies", client, "")
	assert.Equal(t, false, body["data"].(map[string]any)["allowed"])
	_, body = srv.do(t, http.MethodGet, "/me/navigation?path=/knowledge", client, "")
	assert.Equal(t, true, body["data"].(map[string]any)["allowed"])

	resp, body = srv.do(t, http.MethodGet, "/me/navigation", client, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestRoutes_MalformedCallIDIsNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/calls/not-a-uuid", srv.token(t, "operator"), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRoutes_LoginValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/auth/login", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "is required", details["password"])

	resp, body = srv.do(t, http.MethodPost, "/auth/login", "", `{"email":"ghost@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestRoutes_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}
