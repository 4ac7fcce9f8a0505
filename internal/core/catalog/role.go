package catalog

import (
	"fmt"
	"sort"
)

// Role is the per-company role held through a membership.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleAccountant Role = "accountant"
	RoleEmployee   Role = "employee"
	RoleViewer     Role = "viewer"
)

var allRoles = []Role{RoleAdmin, RoleManager, RoleAccountant, RoleEmployee, RoleViewer}

var roleRank = map[Role]int{
	RoleViewer:     1,
	RoleEmployee:   2,
	RoleAccountant: 3,
	RoleManager:    4,
	RoleAdmin:      5,
}

// Each role lists only what it adds on top of the role ranked directly below.
var roleGrants = map[Role][]Permission{
	RoleViewer: {
		PermissionViewCompany,
		PermissionViewAccountingData,
		PermissionViewReports,
	},
	RoleEmployee: {
		PermissionViewUser,
	},
	RoleAccountant: {
		PermissionCreateAccountingData,
		PermissionUpdateAccountingData,
	},
	RoleManager: {
		PermissionExportReports,
	},
	RoleAdmin: {
		PermissionUpdateCompany,
		PermissionCreateUser,
		PermissionUpdateUser,
		PermissionDeactivateUser,
		PermissionAssignUserToCompany,
		PermissionRemoveUserFromCompany,
		PermissionAssignRole,
		PermissionUpdateRole,
		PermissionViewRoles,
		PermissionDeleteAccountingData,
		PermissionManageUsers,
		PermissionViewAuditLogs,
	},
}

var rolePermissions = buildRolePermissions()

func buildRolePermissions() map[Role]map[Permission]struct{} {
	ordered := make([]Role, len(allRoles))
	copy(ordered, allRoles)
	sort.Slice(ordered, func(i, j int) bool { return roleRank[ordered[i]] < roleRank[ordered[j]] })

	out := make(map[Role]map[Permission]struct{}, len(ordered))
	inherited := map[Permission]struct{}{}
	for _, r := range ordered {
		set := make(map[Permission]struct{}, len(inherited)+len(roleGrants[r]))
		for p := range inherited {
			set[p] = struct{}{}
		}
		for _, p := range roleGrants[r] {
			set[p] = struct{}{}
		}
		out[r] = set
		inherited = set
	}
	return out
}

func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles by authority; a higher rank holds a superset of the
// permissions of every lower rank. Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// Outranks reports whether r has strictly more authority than other.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

func (r Role) Grants(p Permission) bool {
	set, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, granted := set[p]
	return granted
}

// Permissions returns the role's resolved permission set in catalog order.
func (r Role) Permissions() []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for _, p := range allPermissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r Role) String() string {
	return string(r)
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
