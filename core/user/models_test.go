package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{" Teacher ", RoleTeacher, false},
		{"parent", RoleParent, false},
		{"student", RoleUnknown, true},
		{"", RoleUnknown, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			role, err := ParseRole(tc.in)
			assert.Equal(t, tc.want, role)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		allowed RoleSet
		want    bool
	}{
		{"admin in admin only", RoleAdmin, AdminOnly, true},
		{"teacher in admin only", RoleTeacher, AdminOnly, false},
		{"parent in admin only", RoleParent, AdminOnly, false},
		{"teacher in teacher only", RoleTeacher, TeacherOnly, true},
		{"admin in teacher only", RoleAdmin, TeacherOnly, false},
		{"parent in any", RoleParent, AnyRole, true},
		{"unknown in any", RoleUnknown, AnyRole, false},
		{"out of range", Role(42), AnyRole, false},
		{"empty set", RoleAdmin, NewRoleSet(), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.role, tc.allowed))
		})
	}
}

func TestRoleScanValue(t *testing.T) {
	var r Role
	require.NoError(t, r.Scan("teacher"))
	assert.Equal(t, RoleTeacher, r)

	require.NoError(t, r.Scan([]byte("admin")))
	assert.Equal(t, RoleAdmin, r)

	// unrecognized values load as RoleUnknown
	require.NoError(t, r.Scan("principal"))
	assert.Equal(t, RoleUnknown, r)

	assert.Error(t, r.Scan(12))

	v, err := RoleParent.Value()
	require.NoError(t, err)
	assert.Equal(t, "parent", v)

	_, err = RoleUnknown.Value()
	assert.Error(t, err)
}

func TestUserPassword(t *testing.T) {
	var usr User
	require.NoError(t, usr.SetPassword("s3cret!x"))
	assert.NotEqual(t, []byte("s3cret!x"), usr.PasswordHash)
	assert.NoError(t, usr.CheckPassword("s3cret!x"))
	assert.Error(t, usr.CheckPassword("s3cret!y"))
}
