// Package auth provides JWT validation, request identity, and the
// role/permission model used to gate handler access.
package auth

import "strings"

// Role is an application role carried in the access token.
type Role string

const (
	RoleAdmin               Role = "Admin"
	RoleDonorCoordinator    Role = "DonorCoordinator"
	RoleDistributionManager Role = "DistributionManager"
	RoleVolunteer           Role = "Volunteer"
	RoleReadOnly            Role = "ReadOnly"
)

// roleRank orders roles for hierarchy checks. A higher rank implies
// every capability of the ranks below it.
var roleRank = map[Role]int{
	RoleAdmin:               5,
	RoleDonorCoordinator:    4,
	RoleDistributionManager: 3,
	RoleVolunteer:           2,
	RoleReadOnly:            1,
}

// rolePermissions maps each role to its explicit grants. Permissions are
// "resource:action" strings; "resource:*" grants every action on the
// resource. Grants are not inherited between roles, so each role lists
// its full set.
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		"donors:*",
		"donations:*",
		"recipients:*",
		"distributions:*",
		"inventory:*",
		"reports:*",
		"users:*",
	},
	RoleDonorCoordinator: {
		"donors:*",
		"donations:*",
		"inventory:read",
		"inventory:update",
		"reports:read",
		"recipients:read",
		"distributions:read",
	},
	RoleDistributionManager: {
		"recipients:*",
		"distributions:*",
		"inventory:read",
		"inventory:update",
		"reports:read",
		"donors:read",
		"donations:read",
	},
	RoleVolunteer: {
		"donations:read",
		"donations:create",
		"distributions:read",
		"distributions:update",
		"inventory:read",
		"donors:read",
		"recipients:read",
	},
	RoleReadOnly: {
		"donors:read",
		"donations:read",
		"recipients:read",
		"distributions:read",
		"inventory:read",
		"reports:read",
	},
}

// ValidRole reports whether the role is one of the known roles.
func ValidRole(role Role) bool {
	_, ok := roleRank[role]
	return ok
}

// AllRoles returns the known roles ordered from most to least privileged.
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleDonorCoordinator,
		RoleDistributionManager,
		RoleVolunteer,
		RoleReadOnly,
	}
}

// HasRole reports whether have meets or exceeds want in the role
// hierarchy. Unknown roles never satisfy any requirement.
func HasRole(have, want Role) bool {
	haveRank, ok := roleRank[have]
	if !ok {
		return false
	}
	wantRank, ok := roleRank[want]
	if !ok {
		return false
	}
	return haveRank >= wantRank
}

// HasPermission reports whether the role grants the "resource:action"
// permission, honoring "resource:*" wildcards.
func HasPermission(role Role, permission string) bool {
	grants, ok := rolePermissions[role]
	if !ok {
		return false
	}

	resource, _, found := strings.Cut(permission, ":")
	if !found {
		return false
	}
	wildcard := resource + ":*"

	for _, grant := range grants {
		if grant == permission || grant == wildcard {
			return true
		}
	}
	return false
}

// Permissions returns the explicit grants for a role.
func Permissions(role Role) []string {
	grants := rolePermissions[role]
	out := make([]string, len(grants))
	copy(out, grants)
	return out
}
