package postgres

import (
	"context"

	"github.com/frahmantamala/company-authz/internal/audit"
	auditDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// AuditRepository is the append-only write side of the audit log.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.WriterAPI {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, row *auditDatamodel.AuditLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}
