package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

func TestResolveEffectiveRole(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		expected domain.Role
		wantErr  error
	}{
		{name: "single master", labels: []string{"MASTER"}, expected: domain.RoleMaster},
		{name: "single admin", labels: []string{"ADMIN"}, expected: domain.RoleAdmin},
		{name: "single operator", labels: []string{"OPERATOR"}, expected: domain.RoleOperator},
		{name: "single client", labels: []string{"CLIENT"}, expected: domain.RoleClient},
		{name: "lower case", labels: []string{"master"}, expected: domain.RoleMaster},
		{name: "mixed case with spaces", labels: []string{"  Operator "}, expected: domain.RoleOperator},
		{name: "master wins over admin", labels: []string{"ADMIN", "MASTER"}, expected: domain.RoleMaster},
		{name: "master wins over operator", labels: []string{"operator", "master"}, expected: domain.RoleMaster},
		{name: "master wins over client", labels: []string{"CLIENT", "MASTER"}, expected: domain.RoleMaster},
		{name: "admin wins over operator", labels: []string{"ADMIN", "OPERATOR"}, expected: domain.RoleAdmin},
		{name: "admin wins over client", labels: []string{"client", "admin"}, expected: domain.RoleAdmin},
		{name: "duplicates collapse", labels: []string{"ADMIN", "admin", "Admin"}, expected: domain.RoleAdmin},
		{name: "unknown labels ignored", labels: []string{"auditor", "OPERATOR"}, expected: domain.RoleOperator},
		{name: "empty", labels: []string{}, wantErr: domain.ErrInvalidRoleState},
		{name: "nil", labels: nil, wantErr: domain.ErrInvalidRoleState},
		{name: "operator and client", labels: []string{"OPERATOR", "CLIENT"}, wantErr: domain.ErrInvalidRoleState},
		{name: "operator and client under master", labels: []string{"MASTER", "OPERATOR", "CLIENT"}, wantErr: domain.ErrInvalidRoleState},
		{name: "only unknown", labels: []string{"unknown_role"}, wantErr: domain.ErrUnrecognizedRole},
		{name: "blank label", labels: []string{"   "}, wantErr: domain.ErrUnrecognizedRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := ResolveEffectiveRole(tt.labels)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, domain.RoleUnknown, role)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestResolveEffectiveRole_OperatorAndClientRejected(t *testing.T) {
	_, err := ResolveEffectiveRole([]string{"client", "operator"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRoleState)
	assert.Contains(t, err.Error(), "operator and client")
}

func TestResolveEffectiveRole_Idempotent(t *testing.T) {
	labels := []string{"OPERATOR", "ADMIN", "bogus"}
	first, err := ResolveEffectiveRole(labels)
	require.NoError(t, err)
	second, err := ResolveEffectiveRole(labels)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"OPERATOR", "ADMIN", "bogus"}, labels)
}

func TestResolveEffectiveRole_OrderIndependent(t *testing.T) {
	a, err := ResolveEffectiveRole([]string{"CLIENT", "ADMIN"})
	require.NoError(t, err)
	b, err := ResolveEffectiveRole([]string{"ADMIN", "CLIENT"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEffectiveRole_IgnoresInvalidValues(t *testing.T) {
	role, err := EffectiveRole([]domain.Role{domain.RoleUnknown, domain.RoleClient})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, role)

	_, err = EffectiveRole([]domain.Role{domain.RoleUnknown})
	assert.ErrorIs(t, err, domain.ErrInvalidRoleState)
}

func TestResolveEffectiveRole_Concurrent(t *testing.T) {
	done := make(chan domain.Role, 16)
	for i := 0; i < cap(done); i++ {
		go func() {
			role, _ := ResolveEffectiveRole([]string{"admin", "master"})
			done <- role
		}()
	}
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, domain.RoleMaster, <-done)
	}
}
