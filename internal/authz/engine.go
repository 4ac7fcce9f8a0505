package authz

import (
	"context"
	"strconv"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/membership"
)

// NoCompany asks for a permission outside any company scope. Only global
// permissions can be held there, and only by super-admins.
const NoCompany int64 = 0

type MembershipReader interface {
	GetMembership(ctx context.Context, userID, companyID int64) (*membership.Membership, error)
}

// Engine answers authorization questions. It has no side effects and is safe
// for concurrent use; denials are (false, nil), and any error means the
// caller must deny.
type Engine struct {
	members MembershipReader
	policy  membership.IsolationPolicy
}

func NewEngine(members MembershipReader, policy membership.IsolationPolicy) *Engine {
	return &Engine{members: members, policy: policy}
}

func (e *Engine) IsSuperAdmin(u *user.User) (bool, error) {
	if u == nil {
		return false, errNilUser
	}
	return u.IsSuperAdmin, nil
}

// CanAccessCompany reports whether u may see companyID at all.
func (e *Engine) CanAccessCompany(ctx context.Context, u *user.User, companyID int64) (bool, error) {
	if err := validateSubject(u, companyID); err != nil {
		return false, err
	}
	if u.IsSuperAdmin {
		return true, nil
	}
	if !e.policy.CompanyIsolationEnforced() {
		return u.IsActive, nil
	}

	m, err := e.members.GetMembership(ctx, u.ID, companyID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// RoleInCompany returns the role u holds through membership. Super-admins
// without a membership get ok=false like anyone else.
func (e *Engine) RoleInCompany(ctx context.Context, u *user.User, companyID int64) (catalog.Role, bool, error) {
	if err := validateSubject(u, companyID); err != nil {
		return "", false, err
	}
	if companyID == NoCompany {
		return "", false, nil
	}

	m, err := e.members.GetMembership(ctx, u.ID, companyID)
	if err != nil {
		return "", false, err
	}
	if m == nil {
		return "", false, nil
	}
	if !m.Role.IsValid() {
		return "", false, internal.NewValidationError("stored role "+strconv.Quote(string(m.Role))+" is unknown", internal.ErrCodeUnknownRole)
	}
	return m.Role, true, nil
}

func (e *Engine) HasPermission(ctx context.Context, u *user.User, p catalog.Permission, companyID int64) (bool, error) {
	if err := validateSubject(u, companyID); err != nil {
		return false, err
	}
	if !p.IsValid() {
		return false, internal.NewValidationFieldError("permission", "unknown permission "+strconv.Quote(string(p)), internal.ErrCodeUnknownPermission)
	}

	if u.IsSuperAdmin {
		return true, nil
	}
	if companyID == NoCompany || p.IsGlobal() {
		return false, nil
	}

	role, ok, err := e.RoleInCompany(ctx, u, companyID)
	if err != nil || !ok {
		return false, err
	}
	return role.Grants(p), nil
}

// PermissionsInCompany lists the effective permissions of u in companyID.
func (e *Engine) PermissionsInCompany(ctx context.Context, u *user.User, companyID int64) ([]catalog.Permission, error) {
	if err := validateSubject(u, companyID); err != nil {
		return nil, err
	}
	if u.IsSuperAdmin {
		return catalog.AllPermissions(), nil
	}

	role, ok, err := e.RoleInCompany(ctx, u, companyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []catalog.Permission{}, nil
	}
	return role.Permissions(), nil
}

var errNilUser = internal.NewValidationError("user is required", internal.ErrCodeInvalidIdentity)

func validateSubject(u *user.User, companyID int64) error {
	if u == nil {
		return errNilUser
	}
	if companyID < 0 {
		return internal.NewValidationFieldError("company_id", "company id must not be negative", internal.ErrCodeInvalidCompany)
	}
	return nil
}
