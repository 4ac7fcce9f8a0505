package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAuditWriteFailed = "audit.write_failed"
)

// AuditWriteFailedEvent is raised when an audit entry could not be persisted.
// The business action that produced it has already completed.
type AuditWriteFailedEvent struct {
	BaseEvent
	Action          string `json:"action"`
	ResourceType    string `json:"resource_type"`
	IsSecurityEvent bool   `json:"is_security_event"`
	Reason          string `json:"reason"`
}

func NewAuditWriteFailedEvent(action, resourceType string, isSecurityEvent bool, actorID, companyID *int64, reason string) *AuditWriteFailedEvent {
	data := map[string]interface{}{
		"action":            action,
		"resource_type":     resourceType,
		"is_security_event": isSecurityEvent,
		"reason":            reason,
	}
	if actorID != nil {
		data["actor_id"] = *actorID
	}
	if companyID != nil {
		data["company_id"] = *companyID
	}

	return &AuditWriteFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAuditWriteFailed,
			Timestamp: time.Now(),
			Data:      data,
		},
		Action:          action,
		ResourceType:    resourceType,
		IsSecurityEvent: isSecurityEvent,
		Reason:          reason,
	}
}
