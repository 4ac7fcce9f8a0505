package postgres

import (
	"context"
	"errors"
	"time"

	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
	membershipDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/membership"
	userDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/user"
	"github.com/frahmantamala/company-authz/internal/membership"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) membership.RepositoryAPI {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) GetMembership(ctx context.Context, userID, companyID int64) (*membershipDatamodel.Membership, error) {
	var m membershipDatamodel.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) ListByCompany(ctx context.Context, companyID int64) ([]*membershipDatamodel.Membership, error) {
	var rows []*membershipDatamodel.Membership
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("user_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *MembershipRepository) ListByUser(ctx context.Context, userID int64) ([]*membershipDatamodel.Membership, error) {
	var rows []*membershipDatamodel.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("company_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *MembershipRepository) ListCompanies(ctx context.Context) ([]*companyDatamodel.Company, error) {
	var rows []*companyDatamodel.Company
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *MembershipRepository) ListCompaniesForUser(ctx context.Context, userID int64) ([]*companyDatamodel.Company, error) {
	var rows []*companyDatamodel.Company
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.company_id = companies.id").
		Where("memberships.user_id = ? AND companies.is_active = ?", userID, true).
		Order("companies.id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *MembershipRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&n).Error
	return n > 0, err
}

func (r *MembershipRepository) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&companyDatamodel.Company{}).
		Where("id = ? AND is_active = ?", companyID, true).
		Count(&n).Error
	return n > 0, err
}

func (r *MembershipRepository) CountAdmins(ctx context.Context, companyID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&membershipDatamodel.Membership{}).
		Where("company_id = ? AND role = ?", companyID, "admin").
		Count(&n).Error
	return n, err
}

// Upsert inserts the pair or rewrites its role in place.
func (r *MembershipRepository) Upsert(ctx context.Context, row *membershipDatamodel.Membership) (*membershipDatamodel.Membership, error) {
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "assigned_by", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.GetMembership(ctx, row.UserID, row.CompanyID)
}

func (r *MembershipRepository) Delete(ctx context.Context, userID, companyID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Delete(&membershipDatamodel.Membership{}).Error
}

// WithinCompanyLock opens a transaction and, on PostgreSQL, takes a
// transaction-scoped advisory lock keyed by the company id so that other
// processes serialize on the same company.
func (r *MembershipRepository) WithinCompanyLock(ctx context.Context, companyID int64, fn func(tx membership.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", companyID).Error; err != nil {
				return err
			}
		}
		return fn(&MembershipRepository{db: tx})
	})
}
