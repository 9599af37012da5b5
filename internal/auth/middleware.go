package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// UserLoader fetches the user a token refers to.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens  *TokenManager
	users   UserLoader
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users UserLoader, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger, metrics: metrics}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return apperrors.NewUnauthorized("user is inactive")
	}

	role, err := ResolveEffectiveRole(user.RoleLabels())
	if err != nil {
		de := apperrors.ToDomainError(err)
		m.metrics.RecordRoleResolution(de.Code)
		m.logger.Warn("role resolution rejected",
			zap.String("user_id", user.ID),
			zap.Strings("roles", user.RoleLabels()),
			zap.Error(err),
		)
		return de
	}
	m.metrics.RecordRoleResolution(role.String())

	setPrincipal(c, &Principal{User: user, Role: role})
	return c.Next()
}
