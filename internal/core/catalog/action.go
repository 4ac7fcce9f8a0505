package catalog

import "fmt"

// Action is the kind recorded on an audit entry.
type Action string

const (
	ActionCreate           Action = "create"
	ActionView             Action = "view"
	ActionUpdate           Action = "update"
	ActionDelete           Action = "delete"
	ActionLogin            Action = "login"
	ActionLogout           Action = "logout"
	ActionSwitchCompany    Action = "switch_company"
	ActionAssignRole       Action = "assign_role"
	ActionRevokeAccess     Action = "revoke_access"
	ActionDenied           Action = "denied"
	ActionSuperAdminAccess Action = "super_admin_access"
)

var allActions = map[Action]struct{}{
	ActionCreate:           {},
	ActionView:             {},
	ActionUpdate:           {},
	ActionDelete:           {},
	ActionLogin:            {},
	ActionLogout:           {},
	ActionSwitchCompany:    {},
	ActionAssignRole:       {},
	ActionRevokeAccess:     {},
	ActionDenied:           {},
	ActionSuperAdminAccess: {},
}

func (a Action) IsValid() bool {
	_, ok := allActions[a]
	return ok
}

// IsReadOnly reports whether the action only observes state. Read-only
// actions are dropped from the audit log when log_all_actions is off.
func (a Action) IsReadOnly() bool {
	return a == ActionView
}

func (a Action) String() string {
	return string(a)
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}
