package settings

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/user"
)

const resourceSystemSettings = "system_settings"

// Service holds runtime switches that may change without a restart. The
// values live in memory and reset to configuration on boot.
type Service struct {
	isolation atomic.Bool
	audit     audit.Recorder
	logger    *slog.Logger
}

func NewService(enforceIsolation bool, recorder audit.Recorder, logger *slog.Logger) *Service {
	s := &Service{audit: recorder, logger: logger}
	s.isolation.Store(enforceIsolation)
	return s
}

func (s *Service) CompanyIsolationEnforced() bool {
	return s.isolation.Load()
}

// SetCompanyIsolation flips company isolation. Only super-admins may do so
// and every change is a security event.
func (s *Service) SetCompanyIsolation(ctx context.Context, actor *user.User, enabled bool) error {
	if actor == nil {
		return internal.NewValidationError("actor is required", internal.ErrCodeInvalidIdentity)
	}
	if !actor.IsSuperAdmin {
		s.record(ctx, audit.Record{
			ActorID:      audit.ID(actor.ID),
			Action:       catalog.ActionDenied,
			ResourceType: resourceSystemSettings,
			ResourceID:   "enforce_company_isolation",
			Details: map[string]any{
				"permission": catalog.PermissionManageSystemSettings,
				"reason":     "permission_denied",
			},
			IsSecurityEvent: true,
		})
		return internal.ErrNotAuthorized
	}

	previous := s.isolation.Swap(enabled)
	if previous == enabled {
		return nil
	}

	s.logger.Warn("company isolation changed", "actor_id", actor.ID, "enabled", enabled)
	s.record(ctx, audit.Record{
		ActorID:      audit.ID(actor.ID),
		Action:       catalog.ActionUpdate,
		ResourceType: resourceSystemSettings,
		ResourceID:   "enforce_company_isolation",
		Details: map[string]any{
			"old_value": previous,
			"new_value": enabled,
		},
		IsSecurityEvent: true,
	})
	return nil
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	if _, err := s.audit.LogAction(ctx, rec); err != nil {
		s.logger.Warn("audit entry not recorded", "action", rec.Action, "error", err)
	}
}
