package dto

import "time"

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Role      string       `json:"role"`
	User      UserResponse `json:"user"`
}

// PasswordResetRequest asks for a reset token by email.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest sets a new password with a reset token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest updates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	User UserResponse `json:"user"`
	Role string       `json:"role"`
}

// NavigationCheckResponse answers whether the caller may open a view.
type NavigationCheckResponse struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
}
