package catalog

import "fmt"

// Permission is a fine-grained capability tag. The set is closed: values
// outside AllPermissions are rejected by ParsePermission.
type Permission string

const (
	PermissionCreateCompany     Permission = "create_company"
	PermissionUpdateCompany     Permission = "update_company"
	PermissionDeactivateCompany Permission = "deactivate_company"
	PermissionDeleteCompany     Permission = "delete_company"
	PermissionViewCompany       Permission = "view_company"

	PermissionCreateUser     Permission = "create_user"
	PermissionUpdateUser     Permission = "update_user"
	PermissionDeactivateUser Permission = "deactivate_user"
	PermissionDeleteUser     Permission = "delete_user"
	PermissionViewUser       Permission = "view_user"
	PermissionManageUsers    Permission = "manage_users"

	PermissionAssignUserToCompany   Permission = "assign_user_to_company"
	PermissionRemoveUserFromCompany Permission = "remove_user_from_company"
	PermissionAssignRole            Permission = "assign_role"
	PermissionUpdateRole            Permission = "update_role"
	PermissionViewRoles             Permission = "view_roles"

	PermissionViewAccountingData   Permission = "view_accounting_data"
	PermissionCreateAccountingData Permission = "create_accounting_data"
	PermissionUpdateAccountingData Permission = "update_accounting_data"
	PermissionDeleteAccountingData Permission = "delete_accounting_data"

	PermissionViewReports   Permission = "view_reports"
	PermissionExportReports Permission = "export_reports"

	PermissionViewAuditLogs        Permission = "view_audit_logs"
	PermissionManageSystemSettings Permission = "manage_system_settings"
)

var allPermissions = []Permission{
	PermissionCreateCompany,
	PermissionUpdateCompany,
	PermissionDeactivateCompany,
	PermissionDeleteCompany,
	PermissionViewCompany,
	PermissionCreateUser,
	PermissionUpdateUser,
	PermissionDeactivateUser,
	PermissionDeleteUser,
	PermissionViewUser,
	PermissionManageUsers,
	PermissionAssignUserToCompany,
	PermissionRemoveUserFromCompany,
	PermissionAssignRole,
	PermissionUpdateRole,
	PermissionViewRoles,
	PermissionViewAccountingData,
	PermissionCreateAccountingData,
	PermissionUpdateAccountingData,
	PermissionDeleteAccountingData,
	PermissionViewReports,
	PermissionExportReports,
	PermissionViewAuditLogs,
	PermissionManageSystemSettings,
}

// globalPermissions are evaluated without a target company.
var globalPermissions = map[Permission]struct{}{
	PermissionCreateCompany:        {},
	PermissionManageSystemSettings: {},
}

var permissionIndex = func() map[Permission]struct{} {
	idx := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		idx[p] = struct{}{}
	}
	return idx
}()

// AllPermissions returns a copy of the full permission catalog.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

func (p Permission) IsValid() bool {
	_, ok := permissionIndex[p]
	return ok
}

// IsGlobal reports whether the permission applies system-wide rather than
// inside a single company.
func (p Permission) IsGlobal() bool {
	_, ok := globalPermissions[p]
	return ok
}

func (p Permission) String() string {
	return string(p)
}

func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}
