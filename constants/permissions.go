package constants

// Organization permissions
const (
	PermAdminFull    = "fleet-dispatch.admin.full-permit"
	PermDispatchFull = "fleet-dispatch.dispatch.full-permit"
	PermEmployeeFull = "fleet-dispatch.employee.full-permit"

	// Special permissions
	PermAny = "any"
)

// Role names used in audit rows and JWT claims
const (
	RoleAdmin    = "admin"
	RoleDispatch = "dispatch"
	RoleEmployee = "employee"
)

// RolePermissions maps a role name to the permission its token carries.
var RolePermissions = map[string]string{
	RoleAdmin:    PermAdminFull,
	RoleDispatch: PermDispatchFull,
	RoleEmployee: PermEmployeeFull,
}

// RoleForPermission resolves the role name a permission string grants.
func RoleForPermission(perm string) (string, bool) {
	for role, p := range RolePermissions {
		if p == perm {
			return role, true
		}
	}
	return "", false
}
