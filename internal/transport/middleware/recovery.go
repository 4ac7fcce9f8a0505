package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/transport"
	pkgLogger "github.com/frahmantamala/company-authz/pkg/logger"
)

// RecoveryMiddleware provides panic recovery with detailed logging. The
// client only ever sees a generic internal error.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					pkgLogger.Enrich(r.Context(), logger).Error("panic recovered",
						"error", rec,
						"method", r.Method,
						"url", r.URL.String(),
						"stack", string(debug.Stack()))

					base.WriteAppError(w, internal.NewInternalError("internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
