package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const fieldsKey ctxKey = "log_fields"

// With returns a context carrying extra request fields such as traceID and
// user_id. Fields accumulate across calls.
func With(ctx context.Context, fields ...any) context.Context {
	prev := Fields(ctx)
	merged := make([]any, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey, merged)
}

// Fields returns the request fields stored on ctx.
func Fields(ctx context.Context) []any {
	fields, _ := ctx.Value(fieldsKey).([]any)
	return fields
}

// Enrich tags base with the request fields. Components that were handed
// their own logger use it to keep request correlation.
func Enrich(ctx context.Context, base *slog.Logger) *slog.Logger {
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
