package domain

import "time"

// User is any authenticated principal: clients, operators and administrators.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Phone          string
	DocumentNumber string
	CompanyID      *string
	Roles          []Role
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoleLabels returns the stored role labels in canonical form.
func (u *User) RoleLabels() []string {
	if u == nil {
		return nil
	}
	return RoleLabels(u.Roles)
}

// HasRole reports whether role is among the user's assigned roles.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
