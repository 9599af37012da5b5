package auth

import (
	"fmt"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

// ResolveEffectiveRole collapses a user's raw role labels into the single role used
// for menu filtering, route guarding and feature gating.
//
// Unrecognized labels are ignored as long as at least one recognized label remains.
// OPERATOR and CLIENT are mutually exclusive and are rejected at every call site.
func ResolveEffectiveRole(labels []string) (domain.Role, error) {
	if len(labels) == 0 {
		return domain.RoleUnknown, fmt.Errorf("%w: a user must have at least one valid role", domain.ErrInvalidRoleState)
	}

	roles := make([]domain.Role, 0, len(labels))
	for _, label := range labels {
		role, err := domain.ParseRole(label)
		if err != nil {
			continue
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return domain.RoleUnknown, fmt.Errorf("%w: none of %q is a known role", domain.ErrUnrecognizedRole, labels)
	}
	return EffectiveRole(roles)
}

// EffectiveRole applies the resolution rules to already parsed roles.
func EffectiveRole(roles []domain.Role) (domain.Role, error) {
	var present [domain.RoleMaster + 1]bool
	distinct := 0
	for _, role := range roles {
		if !role.Valid() {
			continue
		}
		if !present[role] {
			present[role] = true
			distinct++
		}
	}

	switch {
	case distinct == 0:
		return domain.RoleUnknown, fmt.Errorf("%w: a user must have at least one valid role", domain.ErrInvalidRoleState)
	case present[domain.RoleOperator] && present[domain.RoleClient]:
		return domain.RoleUnknown, fmt.Errorf("%w: a user cannot hold operator and client roles simultaneously", domain.ErrInvalidRoleState)
	}

	for _, role := range domain.AllRoles() {
		if present[role] {
			return role, nil
		}
	}
	return domain.RoleUnknown, fmt.Errorf("%w: a user must have at least one valid role", domain.ErrInvalidRoleState)
}
