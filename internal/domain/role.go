package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the closed set of authorization tiers. Higher values carry more authority.
type Role int

const (
	RoleUnknown Role = iota
	RoleClient
	RoleOperator
	RoleAdmin
	RoleMaster
)

var (
	// ErrInvalidRoleState reports an empty or contradictory role set.
	ErrInvalidRoleState = errors.New("invalid role state")
	// ErrUnrecognizedRole reports labels outside the role enumeration.
	ErrUnrecognizedRole = errors.New("unrecognized role")
)

var roleLabels = map[Role]string{
	RoleClient:   "CLIENT",
	RoleOperator: "OPERATOR",
	RoleAdmin:    "ADMIN",
	RoleMaster:   "MASTER",
}

var labelRoles = map[string]Role{
	"CLIENT":   RoleClient,
	"OPERATOR": RoleOperator,
	"ADMIN":    RoleAdmin,
	"MASTER":   RoleMaster,
}

// AllRoles lists the enumeration from highest to lowest authority.
func AllRoles() []Role {
	return []Role{RoleMaster, RoleAdmin, RoleOperator, RoleClient}
}

// NormalizeRoleLabel trims and upper-cases a raw label. Labels are ASCII, so any
// other rune is kept as is and the label cannot match a canonical one.
func NormalizeRoleLabel(label string) string {
	label = strings.TrimSpace(label)
	for _, r := range label {
		if r > unicode.MaxASCII {
			return label
		}
	}
	// Casers carry state and are not shared between goroutines.
	return cases.Upper(language.Und).String(label)
}

// ParseRole converts a raw label (any case) into a Role.
func ParseRole(label string) (Role, error) {
	role, ok := labelRoles[NormalizeRoleLabel(label)]
	if !ok {
		return RoleUnknown, fmt.Errorf("%w: %q", ErrUnrecognizedRole, label)
	}
	return role, nil
}

// ParseRoles parses every label, failing on the first one outside the enumeration.
// Duplicates collapse; the result is ordered from highest to lowest authority.
func ParseRoles(labels []string) ([]Role, error) {
	var seen [RoleMaster + 1]bool
	for _, label := range labels {
		role, err := ParseRole(label)
		if err != nil {
			return nil, err
		}
		seen[role] = true
	}
	roles := make([]Role, 0, len(labels))
	for _, role := range AllRoles() {
		if seen[role] {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// RoleLabels renders roles back to their canonical labels.
func RoleLabels(roles []Role) []string {
	labels := make([]string, 0, len(roles))
	for _, role := range roles {
		labels = append(labels, role.String())
	}
	return labels
}

// Valid reports whether r is a member of the enumeration.
func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

func (r Role) String() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return "UNKNOWN"
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r >= other
}

// CanManageCalls is true for operator tier and above.
func (r Role) CanManageCalls() bool {
	return r.AtLeast(RoleOperator)
}

// CanAdminister is true for admin tier and above.
func (r Role) CanAdminister() bool {
	return r.AtLeast(RoleAdmin)
}

// CanViewSensitiveClientData is reserved for MASTER.
func (r Role) CanViewSensitiveClientData() bool {
	return r == RoleMaster
}

// CanGrant reports whether a holder of r may assign target to another user.
func (r Role) CanGrant(target Role) bool {
	return r.CanAdminister() && target.Valid() && r >= target
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
