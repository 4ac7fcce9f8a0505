package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	auditDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/audit"
)

const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// Record is what a caller asks the log to persist. Timestamp and id are
// always assigned by the log.
type Record struct {
	ActorID         *int64
	CompanyID       *int64
	Action          catalog.Action
	ResourceType    string
	ResourceID      string
	Details         map[string]any
	IsSecurityEvent bool
	// Origin overrides the caller metadata found on the context.
	Origin *internal.Origin
}

type Entry struct {
	ID              string         `json:"id"`
	ActorID         *int64         `json:"actor_id,omitempty"`
	CompanyID       *int64         `json:"company_id,omitempty"`
	Action          catalog.Action `json:"action"`
	ResourceType    string         `json:"resource_type"`
	ResourceID      *string        `json:"resource_id,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	IsSecurityEvent bool           `json:"is_security_event"`
	IPAddress       string         `json:"ip_address,omitempty"`
	UserAgent       string         `json:"user_agent,omitempty"`
	RequestID       string         `json:"request_id,omitempty"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

// Filter selects entries for the read side. Nil fields do not constrain.
type Filter struct {
	From            *time.Time
	To              *time.Time
	IsSecurityEvent *bool
	ActorID         *int64
	CompanyID       *int64
	Limit           int
}

func (f Filter) Validate() error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return internal.NewValidationFieldError("to", "to must not be before from", internal.ErrCodeValidationFailed)
	}
	if f.Limit < 0 {
		return internal.NewValidationFieldError("limit", "limit must not be negative", internal.ErrCodeValidationFailed)
	}
	return nil
}

// Normalized clamps the limit into [1, MaxQueryLimit].
func (f Filter) Normalized() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultQueryLimit
	case f.Limit > MaxQueryLimit:
		f.Limit = MaxQueryLimit
	}
	return f
}

// ID is a convenience for filling nullable id fields.
func ID(v int64) *int64 {
	return &v
}

func ToDataModel(e *Entry) (*auditDatamodel.AuditLog, error) {
	details := "{}"
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("encode audit details: %w", err)
		}
		details = string(raw)
	}

	return &auditDatamodel.AuditLog{
		ID:              e.ID,
		ActorID:         e.ActorID,
		CompanyID:       e.CompanyID,
		Action:          string(e.Action),
		ResourceType:    e.ResourceType,
		ResourceID:      e.ResourceID,
		Details:         details,
		IsSecurityEvent: e.IsSecurityEvent,
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
		RequestID:       e.RequestID,
		OccurredAt:      e.OccurredAt,
	}, nil
}

func FromDataModel(row *auditDatamodel.AuditLog) (*Entry, error) {
	var details map[string]any
	if row.Details != "" && row.Details != "{}" {
		if err := json.Unmarshal([]byte(row.Details), &details); err != nil {
			return nil, fmt.Errorf("decode audit details for %s: %w", row.ID, err)
		}
	}

	return &Entry{
		ID:              row.ID,
		ActorID:         row.ActorID,
		CompanyID:       row.CompanyID,
		Action:          catalog.Action(row.Action),
		ResourceType:    row.ResourceType,
		ResourceID:      row.ResourceID,
		Details:         details,
		IsSecurityEvent: row.IsSecurityEvent,
		IPAddress:       row.IPAddress,
		UserAgent:       row.UserAgent,
		RequestID:       row.RequestID,
		OccurredAt:      row.OccurredAt,
	}, nil
}
