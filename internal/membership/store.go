package membership

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/company"
	companyDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/company"
	membershipDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/membership"
	"github.com/frahmantamala/company-authz/internal/core/user"
)

// RepositoryAPI returns (nil, nil) from single-row lookups when the row is
// absent.
type RepositoryAPI interface {
	GetMembership(ctx context.Context, userID, companyID int64) (*membershipDatamodel.Membership, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*membershipDatamodel.Membership, error)
	ListByUser(ctx context.Context, userID int64) ([]*membershipDatamodel.Membership, error)
	ListCompanies(ctx context.Context) ([]*companyDatamodel.Company, error)
	ListCompaniesForUser(ctx context.Context, userID int64) ([]*companyDatamodel.Company, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	CompanyExists(ctx context.Context, companyID int64) (bool, error)
	CountAdmins(ctx context.Context, companyID int64) (int64, error)
	Upsert(ctx context.Context, row *membershipDatamodel.Membership) (*membershipDatamodel.Membership, error)
	Delete(ctx context.Context, userID, companyID int64) error
	// WithinCompanyLock runs fn in one transaction that holds the company's
	// exclusive lock until it commits or rolls back.
	WithinCompanyLock(ctx context.Context, companyID int64, fn func(tx RepositoryAPI) error) error
}

// IsolationPolicy tells whether memberships bound what a user can see.
type IsolationPolicy interface {
	CompanyIsolationEnforced() bool
}

// Store is the read side of memberships. It is safe for concurrent use.
type Store struct {
	repo   RepositoryAPI
	policy IsolationPolicy
	logger *slog.Logger
}

func NewStore(repo RepositoryAPI, policy IsolationPolicy, logger *slog.Logger) *Store {
	return &Store{repo: repo, policy: policy, logger: logger}
}

func (s *Store) GetMembership(ctx context.Context, userID, companyID int64) (*Membership, error) {
	row, err := s.repo.GetMembership(ctx, userID, companyID)
	if err != nil {
		s.logger.Error("failed to load membership", "user_id", userID, "company_id", companyID, "error", err)
		return nil, internal.NewStorageError("membership store unavailable", err)
	}
	return FromDataModel(row), nil
}

// GetAccessibleCompanies lists every active company for super-admins and
// while isolation is off; otherwise only the user's own companies.
func (s *Store) GetAccessibleCompanies(ctx context.Context, u *user.User) ([]*company.Company, error) {
	if u == nil {
		return nil, internal.NewValidationError("user is required", internal.ErrCodeInvalidIdentity)
	}

	var (
		rows []*companyDatamodel.Company
		err  error
	)
	if u.IsSuperAdmin || !s.policy.CompanyIsolationEnforced() {
		rows, err = s.repo.ListCompanies(ctx)
	} else {
		rows, err = s.repo.ListCompaniesForUser(ctx, u.ID)
	}
	if err != nil {
		s.logger.Error("failed to list accessible companies", "user_id", u.ID, "error", err)
		return nil, internal.NewStorageError("membership store unavailable", err)
	}
	return company.FromDataModels(rows), nil
}

// ListMembers is scoped by the explicit company id.
func (s *Store) ListMembers(ctx context.Context, companyID int64) ([]*Membership, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to list members", "company_id", companyID, "error", err)
		return nil, internal.NewStorageError("membership store unavailable", err)
	}
	return FromDataModels(rows), nil
}

func (s *Store) ListForUser(ctx context.Context, userID int64) ([]*Membership, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list user memberships", "user_id", userID, "error", err)
		return nil, internal.NewStorageError("membership store unavailable", err)
	}
	return FromDataModels(rows), nil
}
