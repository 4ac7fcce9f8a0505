package company

import (
	"time"

	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
)

// Company is a tenant: the isolation boundary every scoped resource
// belongs to.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToDataModel(c *Company) *companyDatamodel.Company {
	return &companyDatamodel.Company{
		ID:        c.ID,
		Name:      c.Name,
		IsActive:  c.IsActive,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	return &Company{
		ID:        c.ID,
		Name:      c.Name,
		IsActive:  c.IsActive,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromDataModels(rows []*companyDatamodel.Company) []*Company {
	out := make([]*Company, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}
