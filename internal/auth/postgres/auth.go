package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/company-authz/internal/auth"
	userDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/user"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var _ auth.RepositoryAPI = (*Repository)(nil)

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &auth.Credentials{
		UserID:       row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
	}, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		IsSuperAdmin: row.IsSuperAdmin,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
