package booking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RolePatient, RoleDoctor, RoleAdmin, RoleSuperAdmin} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	_, err := ParseRole("RECEPTIONIST")
	assert.Error(t, err)
}

func TestRoleTextMarshalling(t *testing.T) {
	data, err := json.Marshal(RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, `"SUPER_ADMIN"`, string(data))

	var r Role
	require.NoError(t, json.Unmarshal([]byte(`"DOCTOR"`), &r))
	assert.Equal(t, RoleDoctor, r)

	assert.Error(t, json.Unmarshal([]byte(`"NOBODY"`), &r))
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RolePatient.CanCancelAppointment())
	assert.True(t, RoleDoctor.CanCancelAppointment())
	assert.True(t, RoleAdmin.CanCancelAppointment())
	assert.True(t, RoleSuperAdmin.CanCancelAppointment())

	assert.False(t, RolePatient.CanManageSlots())
	assert.False(t, RoleDoctor.CanManageSlots())
	assert.True(t, RoleAdmin.CanManageSlots())
	assert.True(t, RoleSuperAdmin.CanManageSlots())
}
