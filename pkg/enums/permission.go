package enums

import "fmt"

// Permission represents a profile-level access grant.
type Permission string

const (
	PermissionRead  Permission = "READ"
	PermissionWrite Permission = "WRITE"
)

var validPermissions = []Permission{
	PermissionRead,
	PermissionWrite,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into a Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}

// PermissionSet is an unordered collection of permissions attached to a
// share or invite. The zero value is empty and grants nothing.
type PermissionSet []Permission

// ParsePermissionSet validates raw values and returns a deduplicated set.
func ParsePermissionSet(values []string) (PermissionSet, error) {
	set := make(PermissionSet, 0, len(values))
	for _, raw := range values {
		perm, err := ParsePermission(raw)
		if err != nil {
			return nil, err
		}
		if !set.Contains(perm) {
			set = append(set, perm)
		}
	}
	return set, nil
}

// Contains reports whether the set grants the given permission.
func (s PermissionSet) Contains(perm Permission) bool {
	for _, candidate := range s {
		if candidate == perm {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set grants nothing.
func (s PermissionSet) IsEmpty() bool {
	return len(s) == 0
}

// Merge returns the union of both sets. Merging an invite's permissions
// into an existing share must never narrow what the share already grants.
func (s PermissionSet) Merge(other PermissionSet) PermissionSet {
	merged := make(PermissionSet, 0, len(s)+len(other))
	merged = append(merged, s...)
	for _, perm := range other {
		if !merged.Contains(perm) {
			merged = append(merged, perm)
		}
	}
	return merged
}

// Strings returns the set as raw values for storage.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, perm := range s {
		out = append(out, string(perm))
	}
	return out
}
