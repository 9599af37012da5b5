package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/helpdeskhq/helpdesk/internal/api/http/handlers"
	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Companies      *handlers.CompaniesHandler
	Calls          *handlers.CallsHandler
	Chat           *handlers.ChatHandler
	Dashboard      *handlers.DashboardHandler
	Knowledge      *handlers.KnowledgeHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Role guards mirror the navigation menu;
// services still enforce ownership and visibility per record.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authenticated := cfg.AuthMiddleware.Handle
	operator := auth.RequireAtLeast(domain.RoleOperator)
	admin := auth.RequireAtLeast(domain.RoleAdmin)
	clientOnly := auth.RequireRoles(domain.RoleClient)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", authenticated, auth.RequireAuthenticated(), cfg.Auth.ChangePassword)

	me := app.Group("/me", authenticated, auth.RequireAuthenticated())
	me.Get("/", cfg.Auth.Me)
	me.Patch("/", cfg.Users.UpdateMe)
	me.Get("/menu", cfg.Auth.Menu)
	me.Get("/navigation", cfg.Auth.CanNavigate)

	users := app.Group("/users", authenticated, admin)
	users.Post("/", cfg.Users.Create)
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Update)
	users.Put("/:id/roles", cfg.Users.UpdateRoles)
	users.Patch("/:id/active", cfg.Users.SetActive)

	clients := app.Group("/clients", authenticated, operator)
	clients.Get("/", cfg.Users.ListClients)
	clients.Get("/:id", cfg.Users.Get)

	operators := app.Group("/operators", authenticated, admin)
	operators.Get("/", cfg.Users.ListOperators)

	companies := app.Group("/companies", authenticated, auth.RequireAuthenticated())
	companies.Get("/", operator, cfg.Companies.List)
	companies.Post("/", admin, cfg.Companies.Create)
	companies.Get("/lookup/:taxID", admin, cfg.Companies.Lookup)
	companies.Get("/:id", cfg.Companies.Get)
	companies.Patch("/:id", admin, cfg.Companies.Update)

	calls := app.Group("/calls", authenticated, auth.RequireAuthenticated())
	calls.Post("/", clientOnly, cfg.Calls.Open)
	calls.Get("/", cfg.Calls.List)
	calls.Get("/protocol/:protocol", cfg.Calls.GetByProtocol)
	calls.Get("/:id", cfg.Calls.Get)
	calls.Get("/:id/history", cfg.Calls.History)
	calls.Post("/:id/messages", cfg.Calls.AddMessage)
	calls.Patch("/:id/status", operator, cfg.Calls.UpdateStatus)
	calls.Patch("/:id/priority", operator, cfg.Calls.UpdatePriority)
	calls.Post("/:id/take", operator, cfg.Calls.Take)
	calls.Post("/:id/assign", admin, cfg.Calls.Assign)
	calls.Post("/:id/close", cfg.Calls.Close)
	calls.Post("/:id/cancel", cfg.Calls.Cancel)

	chat := app.Group("/chat", authenticated, auth.RequireAuthenticated())
	chat.Get("/queue", operator, cfg.Chat.Queue)
	chat.Post("/queue/next", operator, cfg.Chat.AcceptNext)
	chat.Post("/sessions", clientOnly, cfg.Chat.Request)
	chat.Get("/sessions", cfg.Chat.Mine)
	chat.Get("/sessions/:id", cfg.Chat.Get)
	chat.Post("/sessions/:id/accept", operator, cfg.Chat.Accept)
	chat.Get("/sessions/:id/messages", cfg.Chat.Messages)
	chat.Post("/sessions/:id/messages", cfg.Chat.PostMessage)
	chat.Post("/sessions/:id/close", cfg.Chat.Close)
	chat.Post("/sessions/:id/cancel", cfg.Chat.Cancel)

	dashboard := app.Group("/dashboard", authenticated, auth.RequireAuthenticated())
	dashboard.Get("/summary", cfg.Dashboard.Summary)

	knowledge := app.Group("/knowledge", authenticated, auth.RequireAuthenticated())
	knowledge.Get("/", cfg.Knowledge.List)
	knowledge.Get("/:id", cfg.Knowledge.Get)
	knowledge.Post("/", admin, cfg.Knowledge.Create)
	knowledge.Put("/:id", admin, cfg.Knowledge.Update)
	knowledge.Delete("/:id", admin, cfg.Knowledge.Delete)
}
