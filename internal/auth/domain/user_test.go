package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func user(id string, role Role) User {
	return User{ID: id, Role: role, Status: StatusActive, IsActive: true}
}

func TestCanAssignRole(t *testing.T) {
	owner := user("owner", RoleOwner)
	admin := user("admin", RoleAdmin)
	regular := user("user", RoleUser)

	cases := []struct {
		name    string
		actor   User
		target  User
		newRole Role
		want    bool
	}{
		{"owner promotes user to admin", owner, regular, RoleAdmin, true},
		{"owner promotes user to owner", owner, regular, RoleOwner, true},
		{"admin promotes user to admin", admin, regular, RoleAdmin, true},
		{"admin cannot mint an owner", admin, regular, RoleOwner, false},
		{"admin cannot touch an owner", admin, owner, RoleUser, false},
		{"user cannot assign roles", regular, user("other", RoleUser), RoleAdmin, false},
		{"nobody reassigns their own role", owner, owner, RoleAdmin, false},
		{"unknown role refused", owner, regular, Role("ROOT"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CanAssignRole(tc.actor, tc.target, tc.newRole))
		})
	}
}

func TestCanDeactivate(t *testing.T) {
	owner := user("owner", RoleOwner)
	admin := user("admin", RoleAdmin)
	regular := user("user", RoleUser)

	require.True(t, CanDeactivate(owner, regular))
	require.True(t, CanDeactivate(owner, admin))
	require.True(t, CanDeactivate(admin, regular))

	require.False(t, CanDeactivate(admin, owner), "non-owner never deactivates an owner")
	require.False(t, CanDeactivate(regular, regular), "users have no admin path")
	require.False(t, CanDeactivate(admin, admin), "no self-deactivation through admin paths")
}

func TestCanAuthenticate(t *testing.T) {
	require.True(t, user("a", RoleUser).CanAuthenticate())

	pending := user("p", RoleUser)
	pending.Status = StatusPending
	require.True(t, pending.CanAuthenticate(), "pending accounts may sign in before verifying")

	suspended := user("s", RoleUser)
	suspended.Status = StatusSuspended
	require.False(t, suspended.CanAuthenticate())

	inactive := user("i", RoleUser)
	inactive.IsActive = false
	require.False(t, inactive.CanAuthenticate())
}
