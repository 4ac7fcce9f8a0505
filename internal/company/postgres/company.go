package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/company-authz/internal/company"
	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.RepositoryAPI {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, c *companyDatamodel.Company) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if isUniqueViolation(err) {
		return company.ErrDuplicateName
	}
	return err
}

func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*companyDatamodel.Company, error) {
	var c companyDatamodel.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) GetByName(ctx context.Context, name string) (*companyDatamodel.Company, error) {
	var c companyDatamodel.Company
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// SetActive flips the active flag and returns the updated row, or nil when no
// company has that id.
func (r *CompanyRepository) SetActive(ctx context.Context, id int64, active bool) (*companyDatamodel.Company, error) {
	res := r.db.WithContext(ctx).
		Model(&companyDatamodel.Company{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
