package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/authz"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/transport"
	"github.com/go-chi/chi"
)

type Authorizer interface {
	Authorize(ctx context.Context, req authz.Request) error
}

// ResolveCompany reads the company id from the named URL parameter and puts
// it on the request context.
func ResolveCompany(param string, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := transport.ParseID(chi.URLParam(r, param))
			if err != nil {
				base.WriteAppError(w, internal.NewValidationFieldError(param, "company id must be a positive integer", internal.ErrCodeInvalidCompany))
				return
			}
			next.ServeHTTP(w, r.WithContext(internal.ContextWithCompanyID(r.Context(), id)))
		})
	}
}

// RequirePermissions rejects the request unless the authenticated user holds
// every permission in the resolved company, or globally when no company was
// resolved.
func RequirePermissions(authorizer Authorizer, resourceType string, logger *slog.Logger, perms ...catalog.Permission) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := internal.UserFromContext(r.Context())
			if !ok {
				base.WriteAppError(w, internal.ErrInvalidToken)
				return
			}

			companyID, ok := internal.CompanyIDFromContext(r.Context())
			if !ok {
				companyID = authz.NoCompany
			}

			err := authorizer.Authorize(r.Context(), authz.Request{
				User:         u,
				CompanyID:    companyID,
				Permissions:  perms,
				ResourceType: resourceType,
				ResourceID:   resourceID(r),
			})
			if err != nil {
				base.WriteAppError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resourceID is the innermost URL parameter, if any.
func resourceID(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Values) == 0 {
		return ""
	}
	return rctx.URLParams.Values[len(rctx.URLParams.Values)-1]
}
