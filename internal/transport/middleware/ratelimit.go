package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/metrics"
	"github.com/frahmantamala/company-authz/internal/ratelimit"
	"github.com/frahmantamala/company-authz/internal/transport"
)

// RateLimit counts the request against the authenticated user when there is
// one and against the client address otherwise. The address is the one Origin
// resolved, so forwarding headers count only from trusted proxies. It runs
// independently of authorization.
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := internal.OriginFromContext(r.Context()).IPAddress
			if ip == "" {
				ip = remoteHost(r.RemoteAddr)
			}
			identity := "ip:" + ip
			if u, ok := internal.UserFromContext(r.Context()); ok {
				identity = "user:" + strconv.FormatInt(u.ID, 10)
			}

			d := limiter.Allow(identity)
			if !d.Allowed {
				metrics.RateLimitRejections.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				base.WriteAppError(w, internal.NewRateLimitedError())
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
