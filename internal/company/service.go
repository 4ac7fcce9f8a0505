package company

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
	"github.com/frahmantamala/company-authz/internal/core/user"
)

// ErrDuplicateName is returned by repositories on a unique violation.
var ErrDuplicateName = errors.New("company name already exists")

type RepositoryAPI interface {
	Create(ctx context.Context, c *companyDatamodel.Company) error
	GetByID(ctx context.Context, id int64) (*companyDatamodel.Company, error)
	GetByName(ctx context.Context, name string) (*companyDatamodel.Company, error)
	SetActive(ctx context.Context, id int64, active bool) (*companyDatamodel.Company, error)
}

// AdminAssigner grants the first admin of a newly created company.
type AdminAssigner interface {
	AssignInitialAdmin(ctx context.Context, actor *user.User, userID, companyID int64) error
}

type Service struct {
	repo     RepositoryAPI
	assigner AdminAssigner
	audit    audit.Recorder
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, assigner AdminAssigner, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		assigner: assigner,
		audit:    recorder,
		logger:   logger,
	}
}

// Create registers a new company. Only super-admins may create companies.
// When the initial admin cannot be assigned the company is still returned
// together with the assignment error.
func (s *Service) Create(ctx context.Context, actor *user.User, dto CreateCompanyDTO) (*Company, error) {
	if actor == nil {
		return nil, internal.NewValidationError("actor is required", internal.ErrCodeInvalidIdentity)
	}
	if !actor.IsSuperAdmin {
		s.record(ctx, audit.Record{
			ActorID:         audit.ID(actor.ID),
			Action:          catalog.ActionDenied,
			ResourceType:    "company",
			Details:         map[string]any{"permission": catalog.PermissionCreateCompany, "reason": "permission_denied"},
			IsSecurityEvent: true,
		})
		return nil, internal.ErrNotAuthorized
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil {
		s.logger.Error("failed to look up company by name", "name", dto.Name, "error", err)
		return nil, internal.NewStorageError("company store unavailable", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("company name already exists", internal.ErrCodeCompanyExists)
	}

	row := &companyDatamodel.Company{
		Name:      dto.Name,
		IsActive:  true,
		CreatedBy: &actor.ID,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, internal.NewConflictError("company name already exists", internal.ErrCodeCompanyExists)
		}
		s.logger.Error("failed to create company", "name", dto.Name, "error", err)
		return nil, internal.NewStorageError("company store unavailable", err)
	}

	created := FromDataModel(row)
	s.logger.Info("company created", "company_id", created.ID, "actor_id", actor.ID)
	s.record(ctx, audit.Record{
		ActorID:      audit.ID(actor.ID),
		CompanyID:    audit.ID(created.ID),
		Action:       catalog.ActionCreate,
		ResourceType: "company",
		ResourceID:   strconv.FormatInt(created.ID, 10),
		Details:      map[string]any{"name": created.Name},
	})

	if dto.AdminUserID != nil {
		if err := s.assigner.AssignInitialAdmin(ctx, actor, *dto.AdminUserID, created.ID); err != nil {
			s.logger.Warn("company created without initial admin", "company_id", created.ID, "error", err)
			return created, err
		}
	}

	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewStorageError("company store unavailable", err)
	}
	if row == nil {
		return nil, internal.ErrCompanyNotFound
	}
	return FromDataModel(row), nil
}

// Deactivate switches a company off. Its rows and audit history stay in
// place; it drops out of company listings and accepts no new members. Only
// super-admins may deactivate, and deactivating an inactive company is a
// no-op.
func (s *Service) Deactivate(ctx context.Context, actor *user.User, id int64) (*Company, error) {
	if actor == nil {
		return nil, internal.NewValidationError("actor is required", internal.ErrCodeInvalidIdentity)
	}
	if !actor.IsSuperAdmin {
		s.record(ctx, audit.Record{
			ActorID:         audit.ID(actor.ID),
			CompanyID:       audit.ID(id),
			Action:          catalog.ActionDenied,
			ResourceType:    "company",
			ResourceID:      strconv.FormatInt(id, 10),
			Details:         map[string]any{"permission": catalog.PermissionDeactivateCompany, "reason": "permission_denied"},
			IsSecurityEvent: true,
		})
		return nil, internal.ErrNotAuthorized
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewStorageError("company store unavailable", err)
	}
	if row == nil {
		return nil, internal.ErrCompanyNotFound
	}
	if !row.IsActive {
		return FromDataModel(row), nil
	}

	row, err = s.repo.SetActive(ctx, id, false)
	if err != nil {
		s.logger.Error("failed to deactivate company", "company_id", id, "error", err)
		return nil, internal.NewStorageError("company store unavailable", err)
	}
	if row == nil {
		return nil, internal.ErrCompanyNotFound
	}

	s.logger.Info("company deactivated", "company_id", id, "actor_id", actor.ID)
	s.record(ctx, audit.Record{
		ActorID:         audit.ID(actor.ID),
		CompanyID:       audit.ID(id),
		Action:          catalog.ActionUpdate,
		ResourceType:    "company",
		ResourceID:      strconv.FormatInt(id, 10),
		Details:         map[string]any{"field": "is_active", "old_value": true, "new_value": false},
		IsSecurityEvent: true,
	})
	return FromDataModel(row), nil
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	if _, err := s.audit.LogAction(ctx, rec); err != nil {
		s.logger.Warn("audit entry not recorded", "action", rec.Action, "error", err)
	}
}
