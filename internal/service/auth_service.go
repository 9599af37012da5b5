package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/config"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/events"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates login and password flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User      *domain.User
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		resetTTL:   time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Login authenticates by email and password. A user whose stored roles do not
// resolve to an effective role is refused even with the right password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("user is inactive")
	}

	role, err := auth.ResolveEffectiveRole(user.RoleLabels())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.upgradeHash(ctx, user, password)

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Role: role, Token: token, ExpiresAt: exp}, nil
}

// RequestPasswordReset issues a reset token when the email belongs to an active
// user. Unknown emails succeed silently so the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return nil
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:      events.EventPasswordResetRequested,
		SubjectID: user.ID,
		Actor:     events.Actor{UserID: user.ID},
		Payload: events.PasswordResetPayload{
			Email:     user.Email,
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		},
	})
	return nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if isNotFound(err) {
			return apperrors.NewValidationError("reset token is invalid", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or already used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return notFoundOr(err, "user", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if isNotFound(err) {
			return apperrors.NewValidationError("reset token expired or already used", nil)
		}
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, principal *auth.Principal, currentPassword, newPassword string) error {
	if principal == nil || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, principal.UserID())
	if err != nil {
		return notFoundOr(err, "user", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// upgradeHash re-hashes the password after a successful login when the configured
// cost changed. Failures keep the old hash.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	if !auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		return
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return
	}
	previous := user.PasswordHash
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		user.PasswordHash = previous
	}
}

func validatePassword(password string) error {
	switch err := auth.ValidatePassword(password); {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
	case errors.Is(err, auth.ErrPasswordTooLong):
		return apperrors.NewValidationError("password too long", map[string]any{"max_bytes": auth.MaxPasswordBytes})
	}
	return nil
}
