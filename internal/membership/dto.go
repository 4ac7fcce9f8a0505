package membership

import (
	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/common/validation"
)

type AssignRoleDTO struct {
	Role string `json:"role"`
}

func (d AssignRoleDTO) Validate() error {
	allowed := make([]string, 0, len(catalog.AllRoles()))
	for _, r := range catalog.AllRoles() {
		allowed = append(allowed, string(r))
	}

	v := validation.NewValidator()
	v.Field("role", d.Role).Required().OneOf(allowed, internal.ErrCodeUnknownRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type MembersResponse struct {
	Members []*Membership `json:"members"`
}

type PermissionsResponse struct {
	CompanyID    int64                `json:"company_id"`
	Role         catalog.Role         `json:"role,omitempty"`
	IsSuperAdmin bool                 `json:"is_super_admin"`
	Permissions  []catalog.Permission `json:"permissions"`
}
