package rbac

import (
	"errors"
	"strings"
)

// Role is one of the four fixed privilege levels.
type Role string

// Roles ordered from least to most privileged.
const (
	RoleParent      Role = "parent"
	RoleTeacher     Role = "teacher"
	RoleOfficeAdmin Role = "office_admin"
	RoleSuperAdmin  Role = "super_admin"
)

// ErrInvalidRole indicates a value outside the role enumeration.
var ErrInvalidRole = errors.New("rbac: invalid role")

var roleRanks = map[Role]int{
	RoleParent:      1,
	RoleTeacher:     2,
	RoleOfficeAdmin: 3,
	RoleSuperAdmin:  4,
}

var landingPaths = map[Role]string{
	RoleParent:      "/portal/parent",
	RoleTeacher:     "/portal/teacher",
	RoleOfficeAdmin: "/office",
	RoleSuperAdmin:  "/admin",
}

var roleLabels = map[Role]string{
	RoleParent:      "Parent",
	RoleTeacher:     "Teacher",
	RoleOfficeAdmin: "Office Admin",
	RoleSuperAdmin:  "Super Admin",
}

// ParseRole converts user input into a Role. Unknown values are rejected.
func ParseRole(raw string) (Role, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	role := Role(normalized)
	if _, ok := roleRanks[role]; !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Valid reports whether the role belongs to the enumeration.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the privilege rank, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether user is as privileged as min.
func AtLeast(user, min Role) bool {
	if !user.Valid() || !min.Valid() {
		return false
	}
	return user.Rank() >= min.Rank()
}

// LandingPath returns the default route for the role.
func (r Role) LandingPath() string {
	if path, ok := landingPaths[r]; ok {
		return path
	}
	return "/"
}

// Label returns a display name.
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// Editable reports whether the role's permissions may be changed.
func (r Role) Editable() bool {
	return r.Valid() && r != RoleSuperAdmin
}

// AllRoles lists roles in rank order.
func AllRoles() []Role {
	return []Role{RoleParent, RoleTeacher, RoleOfficeAdmin, RoleSuperAdmin}
}

// EditableRoles lists roles whose matrix rows can be administered.
func EditableRoles() []Role {
	return []Role{RoleParent, RoleTeacher, RoleOfficeAdmin}
}

// RolesAtLeast lists the roles whose rank is min's rank or higher.
func RolesAtLeast(min Role) []Role {
	var out []Role
	for _, role := range AllRoles() {
		if AtLeast(role, min) {
			out = append(out, role)
		}
	}
	return out
}
