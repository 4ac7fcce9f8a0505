package authz

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/metrics"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/pkg/logger"
)

const (
	reasonPermissionDenied = "permission_denied"
	reasonCrossCompany     = "cross_company"
)

// Request is one protected operation. Every permission must hold in
// CompanyID; NoCompany evaluates them as global permissions.
type Request struct {
	User         *user.User
	CompanyID    int64
	Permissions  []catalog.Permission
	ResourceType string
	ResourceID   string
}

// Enforcer turns engine answers into allow or reject and writes the audit
// trail for every rejection.
type Enforcer struct {
	engine *Engine
	audit  audit.Recorder
	logger *slog.Logger
}

func NewEnforcer(engine *Engine, recorder audit.Recorder, logger *slog.Logger) *Enforcer {
	return &Enforcer{engine: engine, audit: recorder, logger: logger}
}

// Authorize returns nil when the request may proceed and
// internal.ErrNotAuthorized when it may not. Validation and storage errors
// are returned as is and also mean reject.
func (e *Enforcer) Authorize(ctx context.Context, req Request) error {
	if _, err := e.engine.IsSuperAdmin(req.User); err != nil {
		return err
	}

	if req.CompanyID != NoCompany {
		ok, err := e.engine.CanAccessCompany(ctx, req.User, req.CompanyID)
		if err != nil {
			e.logger.Error("company access check failed", "user_id", req.User.ID, "company_id", req.CompanyID, "error", err)
			e.countAll(req.Permissions, metrics.OutcomeError)
			return err
		}
		if !ok {
			e.countAll(req.Permissions, metrics.OutcomeDeny)
			return e.deny(ctx, req, reasonCrossCompany)
		}
	}

	for _, p := range req.Permissions {
		ok, err := e.engine.HasPermission(ctx, req.User, p, req.CompanyID)
		if err != nil {
			e.logger.Error("permission check failed", "user_id", req.User.ID, "permission", p, "company_id", req.CompanyID, "error", err)
			metrics.AuthzDecisions.WithLabelValues(string(p), metrics.OutcomeError).Inc()
			return err
		}
		if !ok {
			metrics.AuthzDecisions.WithLabelValues(string(p), metrics.OutcomeDeny).Inc()
			return e.deny(ctx, req, reasonPermissionDenied)
		}
	}
	e.countAll(req.Permissions, metrics.OutcomeAllow)

	if req.User.IsSuperAdmin && req.CompanyID != NoCompany {
		e.noteSuperAdminAccess(ctx, req)
	}
	return nil
}

func (e *Enforcer) deny(ctx context.Context, req Request, reason string) error {
	logger.Enrich(ctx, e.logger).Warn("authorization denied",
		"actor_id", req.User.ID,
		"company_id", req.CompanyID,
		"permissions", req.Permissions,
		"reason", reason)

	e.record(ctx, req, catalog.ActionDenied, map[string]any{
		"permissions": req.Permissions,
		"reason":      reason,
	})
	return internal.ErrNotAuthorized
}

func (e *Enforcer) noteSuperAdminAccess(ctx context.Context, req Request) {
	_, member, err := e.engine.RoleInCompany(ctx, req.User, req.CompanyID)
	if err != nil {
		e.logger.Warn("could not resolve super-admin membership", "user_id", req.User.ID, "company_id", req.CompanyID, "error", err)
		return
	}
	if member {
		return
	}
	e.record(ctx, req, catalog.ActionSuperAdminAccess, map[string]any{
		"permissions": req.Permissions,
	})
}

func (e *Enforcer) record(ctx context.Context, req Request, action catalog.Action, details map[string]any) {
	rec := audit.Record{
		ActorID:         audit.ID(req.User.ID),
		Action:          action,
		ResourceType:    req.ResourceType,
		ResourceID:      req.ResourceID,
		Details:         details,
		IsSecurityEvent: true,
	}
	if rec.ResourceType == "" {
		rec.ResourceType = "company"
	}
	if req.CompanyID != NoCompany {
		rec.CompanyID = audit.ID(req.CompanyID)
	}

	if _, err := e.audit.LogAction(ctx, rec); err != nil {
		e.logger.Warn("audit entry not recorded", "action", action, "error", err)
	}
}

func (e *Enforcer) countAll(perms []catalog.Permission, outcome string) {
	for _, p := range perms {
		metrics.AuthzDecisions.WithLabelValues(string(p), outcome).Inc()
	}
}
