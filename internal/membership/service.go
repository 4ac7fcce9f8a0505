package membership

import (
	"context"
	"strconv"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	membershipDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/membership"
	"github.com/frahmantamala/company-authz/internal/core/user"
)

// PermissionChecker is the subset of the authorization engine the service
// consults before mutating.
type PermissionChecker interface {
	HasPermission(ctx context.Context, u *user.User, p catalog.Permission, companyID int64) (bool, error)
}

// Service mutates memberships. Mutations for one company never interleave.
type Service struct {
	*Store
	checker PermissionChecker
	audit   audit.Recorder
	locks   *keyedMutex
}

func NewService(store *Store, checker PermissionChecker, recorder audit.Recorder) *Service {
	return &Service{
		Store:   store,
		checker: checker,
		audit:   recorder,
		locks:   newKeyedMutex(),
	}
}

// UpsertMembership grants role to userID in companyID, replacing any role
// the user already holds there.
func (s *Service) UpsertMembership(ctx context.Context, actor *user.User, userID, companyID int64, role catalog.Role) (*Membership, error) {
	if err := validateTarget(actor, userID, companyID); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, internal.NewValidationFieldError("role", "unknown role "+strconv.Quote(string(role)), internal.ErrCodeUnknownRole)
	}

	if err := s.requireManageUsers(ctx, actor, userID, companyID); err != nil {
		return nil, err
	}

	var (
		previous *membershipDatamodel.Membership
		saved    *membershipDatamodel.Membership
	)
	unlock := s.locks.Lock(companyID)
	err := s.repo.WithinCompanyLock(ctx, companyID, func(tx RepositoryAPI) error {
		if err := requireParties(ctx, tx, userID, companyID); err != nil {
			return err
		}

		current, err := tx.GetMembership(ctx, userID, companyID)
		if err != nil {
			return err
		}
		previous = current

		if !actor.IsSuperAdmin {
			actorRole, err := actorRoleIn(ctx, tx, actor, companyID)
			if err != nil {
				return err
			}
			if !actorRole.Outranks(role) {
				return internal.NewPrivilegeEscalationError("cannot grant a role at or above your own")
			}
			if current != nil && current.UserID != actor.ID && !actorRole.Outranks(catalog.Role(current.Role)) {
				return internal.NewPrivilegeEscalationError("cannot change a member at or above your own role")
			}
		}

		if current != nil && catalog.Role(current.Role) == catalog.RoleAdmin && role != catalog.RoleAdmin {
			if err := requireAnotherAdmin(ctx, tx, companyID); err != nil {
				return err
			}
		}

		saved, err = tx.Upsert(ctx, &membershipDatamodel.Membership{
			UserID:     userID,
			CompanyID:  companyID,
			Role:       string(role),
			AssignedBy: audit.ID(actor.ID),
		})
		return err
	})
	unlock()
	if err != nil {
		return nil, s.mutationFailed(ctx, actor, userID, companyID, catalog.ActionAssignRole, err)
	}

	details := map[string]any{"user_id": userID, "new_role": role}
	if previous != nil {
		details["old_role"] = previous.Role
	}
	s.record(ctx, audit.Record{
		ActorID:         audit.ID(actor.ID),
		CompanyID:       audit.ID(companyID),
		Action:          catalog.ActionAssignRole,
		ResourceType:    "membership",
		ResourceID:      strconv.FormatInt(saved.ID, 10),
		Details:         details,
		IsSecurityEvent: true,
	})
	s.logger.Info("membership upserted", "actor_id", actor.ID, "user_id", userID, "company_id", companyID, "role", role)

	return FromDataModel(saved), nil
}

// RemoveMembership revokes userID's access to companyID. Members may always
// remove themselves unless they are the last admin.
func (s *Service) RemoveMembership(ctx context.Context, actor *user.User, userID, companyID int64) error {
	if err := validateTarget(actor, userID, companyID); err != nil {
		return err
	}

	self := actor.ID == userID
	if !self {
		if err := s.requireManageUsers(ctx, actor, userID, companyID); err != nil {
			return err
		}
	}

	var removed *membershipDatamodel.Membership
	unlock := s.locks.Lock(companyID)
	err := s.repo.WithinCompanyLock(ctx, companyID, func(tx RepositoryAPI) error {
		current, err := tx.GetMembership(ctx, userID, companyID)
		if err != nil {
			return err
		}
		if current == nil {
			return internal.ErrMembershipNotFound
		}

		if !self && !actor.IsSuperAdmin {
			actorRole, err := actorRoleIn(ctx, tx, actor, companyID)
			if err != nil {
				return err
			}
			if !actorRole.Outranks(catalog.Role(current.Role)) {
				return internal.NewPrivilegeEscalationError("cannot remove a member at or above your own role")
			}
		}

		if catalog.Role(current.Role) == catalog.RoleAdmin {
			if err := requireAnotherAdmin(ctx, tx, companyID); err != nil {
				return err
			}
		}

		removed = current
		return tx.Delete(ctx, userID, companyID)
	})
	unlock()
	if err != nil {
		return s.mutationFailed(ctx, actor, userID, companyID, catalog.ActionRevokeAccess, err)
	}

	s.record(ctx, audit.Record{
		ActorID:         audit.ID(actor.ID),
		CompanyID:       audit.ID(companyID),
		Action:          catalog.ActionRevokeAccess,
		ResourceType:    "membership",
		ResourceID:      strconv.FormatInt(removed.ID, 10),
		Details:         map[string]any{"user_id": userID, "old_role": removed.Role, "self_leave": self},
		IsSecurityEvent: true,
	})
	s.logger.Info("membership removed", "actor_id", actor.ID, "user_id", userID, "company_id", companyID)

	return nil
}

// AssignInitialAdmin makes userID the admin of a freshly created company.
func (s *Service) AssignInitialAdmin(ctx context.Context, actor *user.User, userID, companyID int64) error {
	_, err := s.UpsertMembership(ctx, actor, userID, companyID, catalog.RoleAdmin)
	return err
}

func (s *Service) requireManageUsers(ctx context.Context, actor *user.User, userID, companyID int64) error {
	ok, err := s.checker.HasPermission(ctx, actor, catalog.PermissionManageUsers, companyID)
	if err != nil {
		return err
	}
	if !ok {
		s.recordDenied(ctx, actor, userID, companyID, "permission_denied")
		return internal.NewPrivilegeEscalationError("not permitted to manage members of this company")
	}
	return nil
}

// mutationFailed audits guard failures and turns raw repository errors into
// storage errors.
func (s *Service) mutationFailed(ctx context.Context, actor *user.User, userID, companyID int64, action catalog.Action, err error) error {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		s.logger.Error("membership mutation failed", "action", action, "company_id", companyID, "error", err)
		return internal.NewStorageError("membership store unavailable", err)
	}

	switch appErr.Type {
	case internal.ErrorTypePrivilegeEscalation:
		s.recordDenied(ctx, actor, userID, companyID, "role_escalation")
	case internal.ErrorTypeInvariantViolation:
		s.logger.Warn("membership mutation rejected", "action", action, "company_id", companyID, "code", appErr.Code)
	}
	return appErr
}

func (s *Service) recordDenied(ctx context.Context, actor *user.User, userID, companyID int64, reason string) {
	s.record(ctx, audit.Record{
		ActorID:      audit.ID(actor.ID),
		CompanyID:    audit.ID(companyID),
		Action:       catalog.ActionDenied,
		ResourceType: "membership",
		Details: map[string]any{
			"user_id":    userID,
			"permission": catalog.PermissionManageUsers,
			"reason":     reason,
		},
		IsSecurityEvent: true,
	})
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	if _, err := s.audit.LogAction(ctx, rec); err != nil {
		s.logger.Warn("audit entry not recorded", "action", rec.Action, "error", err)
	}
}

func validateTarget(actor *user.User, userID, companyID int64) error {
	if actor == nil {
		return internal.NewValidationError("actor is required", internal.ErrCodeInvalidIdentity)
	}
	if userID <= 0 {
		return internal.NewValidationFieldError("user_id", "user id must be positive", internal.ErrCodeInvalidIdentity)
	}
	if companyID <= 0 {
		return internal.NewValidationFieldError("company_id", "company id must be positive", internal.ErrCodeInvalidCompany)
	}
	return nil
}

func requireParties(ctx context.Context, tx RepositoryAPI, userID, companyID int64) error {
	ok, err := tx.CompanyExists(ctx, companyID)
	if err != nil {
		return err
	}
	if !ok {
		return internal.ErrCompanyNotFound
	}
	ok, err = tx.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return internal.ErrUserNotFound
	}
	return nil
}

// actorRoleIn re-reads the actor's role inside the transaction so a
// concurrent demotion is honored.
func actorRoleIn(ctx context.Context, tx RepositoryAPI, actor *user.User, companyID int64) (catalog.Role, error) {
	row, err := tx.GetMembership(ctx, actor.ID, companyID)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", internal.NewPrivilegeEscalationError("not a member of this company")
	}
	return catalog.Role(row.Role), nil
}

func requireAnotherAdmin(ctx context.Context, tx RepositoryAPI, companyID int64) error {
	admins, err := tx.CountAdmins(ctx, companyID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return internal.ErrLastAdmin
	}
	return nil
}
