package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("operator")
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, role)

	_, err = ParseRole("supervisor")
	assert.ErrorIs(t, err, ErrUnrecognizedRole)
}

func TestParseRoles_FailsFast(t *testing.T) {
	roles, err := ParseRoles([]string{"client", "ADMIN", "admin"})
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleClient}, roles)

	_, err = ParseRoles([]string{"ADMIN", "root"})
	assert.ErrorIs(t, err, ErrUnrecognizedRole)
}

func TestRole_Ordering(t *testing.T) {
	assert.True(t, RoleMaster.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleOperator))
	assert.True(t, RoleOperator.AtLeast(RoleClient))
	assert.False(t, RoleClient.AtLeast(RoleOperator))
	assert.False(t, RoleUnknown.AtLeast(RoleUnknown))
}

func TestRole_Capabilities(t *testing.T) {
	assert.True(t, RoleOperator.CanManageCalls())
	assert.False(t, RoleClient.CanManageCalls())
	assert.False(t, RoleOperator.CanAdminister())
	assert.True(t, RoleAdmin.CanAdminister())
	assert.False(t, RoleAdmin.CanViewSensitiveClientData())
	assert.True(t, RoleMaster.CanViewSensitiveClientData())

	assert.True(t, RoleAdmin.CanGrant(RoleOperator))
	assert.True(t, RoleAdmin.CanGrant(RoleAdmin))
	assert.False(t, RoleAdmin.CanGrant(RoleMaster))
	assert.True(t, RoleMaster.CanGrant(RoleMaster))
	assert.False(t, RoleOperator.CanGrant(RoleClient))
}

func TestRole_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{Role: RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"ADMIN"}`, string(payload))

	var decoded struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"master"}`), &decoded))
	assert.Equal(t, RoleMaster, decoded.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"root"}`), &decoded))

	_, err = json.Marshal(struct{ Role Role }{Role: RoleUnknown})
	assert.Error(t, err)
}

func TestParseRole_RejectsNonASCIILookalikes(t *testing.T) {
	for _, label := range []string{"admın", "maſter", "ｃｌｉｅｎｔ", "OPERATOR\u200b"} {
		t.Run(label, func(t *testing.T) {
			_, err := ParseRole(label)
			assert.ErrorIs(t, err, ErrUnrecognizedRole)
		})
	}

	role, err := ParseRole("  Operator ")
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, role)
}
