package membership

import (
	"time"

	"github.com/frahmantamala/company-authz/internal/core/catalog"
	membershipDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/membership"
)

// Membership binds one user to one company with exactly one role.
type Membership struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"user_id"`
	CompanyID  int64        `json:"company_id"`
	Role       catalog.Role `json:"role"`
	AssignedBy *int64       `json:"assigned_by,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func ToDataModel(m *Membership) *membershipDatamodel.Membership {
	return &membershipDatamodel.Membership{
		ID:         m.ID,
		UserID:     m.UserID,
		CompanyID:  m.CompanyID,
		Role:       string(m.Role),
		AssignedBy: m.AssignedBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func FromDataModel(row *membershipDatamodel.Membership) *Membership {
	if row == nil {
		return nil
	}
	return &Membership{
		ID:         row.ID,
		UserID:     row.UserID,
		CompanyID:  row.CompanyID,
		Role:       catalog.Role(row.Role),
		AssignedBy: row.AssignedBy,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func FromDataModels(rows []*membershipDatamodel.Membership) []*Membership {
	out := make([]*Membership, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}
