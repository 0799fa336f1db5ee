package access

import (
	"fmt"
	"strings"
)

// Role is the closed set of per-organization roles. The ordering owner > admin >
// editor > viewer is authoritative; every capability decision in the application
// derives from the table in this file rather than ad-hoc comparisons at call sites.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// SystemRole is the platform-wide role carried by a user account, independent of
// any organization membership.
type SystemRole string

const (
	SystemRoleUser      SystemRole = "user"
	SystemRoleAdmin     SystemRole = "admin"
	SystemRoleSuperuser SystemRole = "superuser"
)

var roleRank = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleEditor: 2,
	RoleViewer: 1,
}

// ParseRole validates a raw role string, rejecting unknown values at construction.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRank[role]; !ok {
		return "", fmt.Errorf("access: unknown role %q", value)
	}
	return role, nil
}

// ParseSystemRole validates a raw system role string.
func ParseSystemRole(value string) (SystemRole, error) {
	role := SystemRole(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case SystemRoleUser, SystemRoleAdmin, SystemRoleSuperuser:
		return role, nil
	default:
		return "", fmt.Errorf("access: unknown system role %q", value)
	}
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role ranks equal to or above the other role.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// Capabilities are the per-request permission flags derived from a resolved role.
type Capabilities struct {
	CanEdit          bool `json:"can_edit"`
	CanDelete        bool `json:"can_delete"`
	CanInvite        bool `json:"can_invite"`
	CanManageMembers bool `json:"can_manage_members"`
}

// Capabilities maps a role to its permission flags. Owner and admin manage the
// organization, editors mutate content, viewers are read-only.
func (r Role) Capabilities() Capabilities {
	return Capabilities{
		CanEdit:          r.AtLeast(RoleEditor),
		CanDelete:        r.AtLeast(RoleAdmin),
		CanInvite:        r.AtLeast(RoleAdmin),
		CanManageMembers: r.AtLeast(RoleAdmin),
	}
}
