package authz

import (
	"testing"

	"github.com/scoutfund/troopsales-backend/pkg/enums"
)

func TestDecisionAllows(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		required enums.Permission
		want     bool
	}{
		{
			name:     "owner satisfies read",
			decision: Decision{Role: RoleOwner},
			required: enums.PermissionRead,
			want:     true,
		},
		{
			name:     "owner satisfies write",
			decision: Decision{Role: RoleOwner},
			required: enums.PermissionWrite,
			want:     true,
		},
		{
			name:     "shared read does not satisfy write",
			decision: Decision{Role: RoleShared, Permissions: enums.PermissionSet{enums.PermissionRead}},
			required: enums.PermissionWrite,
			want:     false,
		},
		{
			name:     "shared write satisfies write",
			decision: Decision{Role: RoleShared, Permissions: enums.PermissionSet{enums.PermissionWrite}},
			required: enums.PermissionWrite,
			want:     true,
		},
		{
			name:     "none satisfies nothing",
			decision: Decision{Role: RoleNone},
			required: enums.PermissionRead,
			want:     false,
		},
		{
			name:     "shared with empty set satisfies nothing",
			decision: Decision{Role: RoleShared},
			required: enums.PermissionRead,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.decision.Allows(tt.required); got != tt.want {
				t.Fatalf("Allows(%s) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}

func TestDecisionRoleHelpers(t *testing.T) {
	if !(Decision{Role: RoleOwner}).IsOwner() {
		t.Error("owner decision should report IsOwner")
	}
	if (Decision{Role: RoleShared}).IsOwner() {
		t.Error("shared decision must not report IsOwner")
	}
	if !(Decision{Role: RoleNone}).Denied() {
		t.Error("none decision should report Denied")
	}
	if (Decision{Role: RoleShared}).Denied() {
		t.Error("shared decision must not report Denied")
	}
}
