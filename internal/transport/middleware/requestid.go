package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/company-authz/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID accepts the caller's request id or mints one, and exposes it to
// chi's GetReqID, the context logger and the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), chiMiddleware.RequestIDKey, reqID)
		ctx = logger.With(ctx, "traceID", reqID)

		w.Header().Set(RequestIDHeader, reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
