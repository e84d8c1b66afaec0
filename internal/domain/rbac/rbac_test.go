package rbac

import (
	"errors"
	"testing"
)

func TestFromAdminCheck(t *testing.T) {
	tests := []struct {
		name    string
		isAdmin bool
		err     error
		want    Role
	}{
		{name: "admin без ошибки", isAdmin: true, want: RoleAdmin},
		{name: "не admin", isAdmin: false, want: RoleCitizen},
		{name: "ошибка RPC — citizen", isAdmin: false, err: errors.New("timeout"), want: RoleCitizen},
		{name: "ошибка RPC при true — всё равно citizen", isAdmin: true, err: errors.New("partial"), want: RoleCitizen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromAdminCheck(tt.isAdmin, tt.err); got != tt.want {
				t.Errorf("FromAdminCheck(%v, %v) = %q, хотели %q", tt.isAdmin, tt.err, got, tt.want)
			}
		})
	}
}

func TestRoleIsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleCitizen, true},
		{RoleAdmin, true},
		{"ADMIN", false},
		{"superuser", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.role.IsValid(); got != tt.want {
			t.Errorf("Role(%q).IsValid() = %v, хотели %v", tt.role, got, tt.want)
		}
	}
}
