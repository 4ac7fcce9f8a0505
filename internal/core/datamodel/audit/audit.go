package audit

import "time"

// AuditLog rows are written once and never updated.
type AuditLog struct {
	ID              string    `gorm:"column:id;primaryKey;size:26" db:"id"`
	ActorID         *int64    `gorm:"column:actor_id;index" db:"actor_id"`
	CompanyID       *int64    `gorm:"column:company_id;index" db:"company_id"`
	Action          string    `gorm:"column:action;not null" db:"action"`
	ResourceType    string    `gorm:"column:resource_type;not null" db:"resource_type"`
	ResourceID      *string   `gorm:"column:resource_id" db:"resource_id"`
	Details         string    `gorm:"column:details;type:jsonb;not null" db:"details"`
	IsSecurityEvent bool      `gorm:"column:is_security_event;not null;index" db:"is_security_event"`
	IPAddress       string    `gorm:"column:ip_address" db:"ip_address"`
	UserAgent       string    `gorm:"column:user_agent" db:"user_agent"`
	RequestID       string    `gorm:"column:request_id" db:"request_id"`
	OccurredAt      time.Time `gorm:"column:occurred_at;not null;index" db:"occurred_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
