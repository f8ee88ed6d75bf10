package auth

// Permission represents a named capability in the operator API.
type Permission string

// Permission constants.
const (
	PermChargerRead    Permission = "charger:read"
	PermChargerCommand Permission = "charger:command"
	PermMessageRead    Permission = "message:read"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermChargerRead,
		PermMessageRead,
	},
	RoleOperator: {
		PermChargerRead,
		PermChargerCommand,
		PermMessageRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
