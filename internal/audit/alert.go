package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/company-authz/internal/core/events"
)

// NewOperatorAlertHandler turns audit write failures into operator alerts.
func NewOperatorAlertHandler(logger *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		attrs := []any{
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt(),
		}
		if data, ok := event.Payload().(map[string]interface{}); ok {
			for k, v := range data {
				attrs = append(attrs, k, v)
			}
		}
		logger.ErrorContext(ctx, "audit entry lost", attrs...)
		return nil
	}
}
