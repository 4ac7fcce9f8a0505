package company

import (
	"strings"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/common/validation"
)

type CreateCompanyDTO struct {
	Name string `json:"name"`
	// AdminUserID, when set, receives the initial admin membership.
	AdminUserID *int64 `json:"admin_user_id,omitempty"`
}

func (d *CreateCompanyDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d CreateCompanyDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(200)
	v.Field("admin_user_id", d.AdminUserID).MinInt(1, internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CompaniesResponse struct {
	Companies []*Company `json:"companies"`
}
