package postgres

import (
	"context"
	"strings"

	"github.com/frahmantamala/company-authz/internal/audit"
	auditDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/audit"
	"github.com/jmoiron/sqlx"
)

const selectAuditLogs = `SELECT id, actor_id, company_id, action, resource_type, resource_id, details,
	is_security_event, ip_address, user_agent, request_id, occurred_at
	FROM audit_logs`

// QueryRepository serves the read side used by operators and the audit CLI.
type QueryRepository struct {
	db *sqlx.DB
}

func NewQueryRepository(db *sqlx.DB) audit.ReaderAPI {
	return &QueryRepository{db: db}
}

func (r *QueryRepository) Find(ctx context.Context, f audit.Filter) ([]*auditDatamodel.AuditLog, error) {
	query, args := buildFindQuery(f.Normalized())

	var rows []*auditDatamodel.AuditLog
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func buildFindQuery(f audit.Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if f.From != nil {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, *f.To)
	}
	if f.IsSecurityEvent != nil {
		conds = append(conds, "is_security_event = ?")
		args = append(args, *f.IsSecurityEvent)
	}
	if f.ActorID != nil {
		conds = append(conds, "actor_id = ?")
		args = append(args, *f.ActorID)
	}
	if f.CompanyID != nil {
		conds = append(conds, "company_id = ?")
		args = append(args, *f.CompanyID)
	}

	var b strings.Builder
	b.WriteString(selectAuditLogs)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at ASC, id ASC LIMIT ?")
	args = append(args, f.Limit)

	return b.String(), args
}
