package dto

import "time"

// CreateUserRequest payload for POST /users.
type CreateUserRequest struct {
	Name           string   `json:"name" validate:"required,max=120"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=8"`
	Phone          string   `json:"phone" validate:"max=40"`
	DocumentNumber string   `json:"document_number" validate:"max=40"`
	CompanyID      *string  `json:"company_id" validate:"omitempty,uuid"`
	Roles          []string `json:"roles" validate:"required,min=1,dive,required"`
}

// UpdateUserRequest carries optional profile changes.
type UpdateUserRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone" validate:"omitempty,max=40"`
	DocumentNumber *string `json:"document_number" validate:"omitempty,max=40"`
	CompanyID      *string `json:"company_id" validate:"omitempty,uuid"`
}

// UpdateRolesRequest replaces a user's role labels.
type UpdateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

// SetActiveRequest enables or disables an account.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// UserResponse is a user as seen by the caller. Sensitive fields are blank when redacted.
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	DocumentNumber string    `json:"document_number,omitempty"`
	CompanyID      *string   `json:"company_id"`
	Roles          []string  `json:"roles"`
	EffectiveRole  string    `json:"effective_role,omitempty"`
	Active         bool      `json:"active"`
	Redacted       bool      `json:"redacted"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
