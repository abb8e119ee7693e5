package authz

import "github.com/scoutfund/troopsales-backend/pkg/enums"

// Role classifies the caller's relationship to a profile.
type Role string

const (
	// RoleOwner is the profile owner: full permissions plus administrative
	// rights (delete, re-share).
	RoleOwner Role = "owner"
	// RoleShared means an active share grants a permission subset.
	RoleShared Role = "shared"
	// RoleNone covers both "no access" and "profile does not exist" so read
	// callers cannot tell the two apart.
	RoleNone Role = "none"
)

// Decision is the resolved permission outcome for one (profile, account)
// pair. It is a value type passed between pipeline steps, never mutated
// after resolution.
type Decision struct {
	Role        Role                `json:"role"`
	Permissions enums.PermissionSet `json:"permissions,omitempty"`
}

// Allows reports whether the decision satisfies the required permission.
// Owners satisfy any requirement.
func (d Decision) Allows(required enums.Permission) bool {
	switch d.Role {
	case RoleOwner:
		return true
	case RoleShared:
		return d.Permissions.Contains(required)
	default:
		return false
	}
}

// IsOwner reports whether the caller owns the profile.
func (d Decision) IsOwner() bool {
	return d.Role == RoleOwner
}

// Denied reports whether the caller has no access at all.
func (d Decision) Denied() bool {
	return d.Role == RoleNone
}
