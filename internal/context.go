package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/company-authz/internal/core/user"
)

type ctxKey string

const (
	ContextUserKey    ctxKey = "user"
	ContextCompanyKey ctxKey = "companyID"
	ContextOriginKey  ctxKey = "origin"
)

// Origin is the caller metadata recorded on audit entries.
type Origin struct {
	IPAddress string
	UserAgent string
	RequestID string
}

func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(ContextUserKey).(*user.User)
	return u, ok && u != nil
}

// ContextWithCompanyID records the company the current request targets.
func ContextWithCompanyID(ctx context.Context, companyID int64) context.Context {
	return context.WithValue(ctx, ContextCompanyKey, companyID)
}

func CompanyIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(ContextCompanyKey).(int64)
	return id, ok
}

func ContextWithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, ContextOriginKey, o)
}

func OriginFromContext(ctx context.Context) Origin {
	if ctx == nil {
		return Origin{}
	}
	o, _ := ctx.Value(ContextOriginKey).(Origin)
	return o
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
