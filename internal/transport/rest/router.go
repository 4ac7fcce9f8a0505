package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/auth"
	"github.com/frahmantamala/company-authz/internal/company"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/metrics"
	"github.com/frahmantamala/company-authz/internal/membership"
	"github.com/frahmantamala/company-authz/internal/ratelimit"
	"github.com/frahmantamala/company-authz/internal/settings"
	"github.com/frahmantamala/company-authz/internal/transport/middleware"
	"github.com/frahmantamala/company-authz/internal/transport/swagger"
	"github.com/frahmantamala/company-authz/internal/user"
	"github.com/go-chi/chi"
)

// Handlers bundles everything the router mounts. Nil handlers leave their
// routes unregistered.
type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	User       *user.Handler
	Company    *company.Handler
	Membership *membership.Handler
	Audit      *audit.Handler
	Settings   *settings.Handler
}

type Options struct {
	Authorizer middleware.Authorizer
	// Limiter budgets authenticated users. AddressLimiter budgets client
	// addresses ahead of authentication and should allow more, since one
	// address can front many users.
	Limiter        *ratelimit.Limiter
	AddressLimiter *ratelimit.Limiter
	ClientIP       *middleware.ClientIP
	AllowedOrigins []string
	MetricsEnabled bool
	MetricsPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) {
	logger := opts.Logger

	router.Use(middleware.RequestID)
	router.Use(middleware.Origin(opts.ClientIP))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(metrics.Instrument)

	if opts.MetricsEnabled {
		router.Handle(opts.MetricsPath, metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Handle("/openapi.yml", swagger.DocumentHandler())
	router.Handle("/swagger/*", swagger.Handler())

	require := func(resourceType string, perms ...catalog.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermissions(opts.Authorizer, resourceType, logger, perms...)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.AddressLimiter != nil {
			r.Use(middleware.RateLimit(opts.AddressLimiter, logger))
		}

		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.With(h.Auth.AuthMiddleware).Post("/logout", h.Auth.Logout)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			if opts.Limiter != nil {
				pr.Use(middleware.RateLimit(opts.Limiter, logger))
			}

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
			}

			if h.Company != nil {
				pr.Get("/companies", h.Company.List)
				pr.With(require("company", catalog.PermissionCreateCompany)).Post("/companies", h.Company.Create)
			}

			pr.Route("/companies/{companyID}", func(cr chi.Router) {
				cr.Use(middleware.ResolveCompany("companyID", logger))

				if h.Company != nil {
					cr.With(require("company", catalog.PermissionViewCompany)).Get("/", h.Company.Get)
					cr.With(require("company", catalog.PermissionDeactivateCompany)).Post("/deactivate", h.Company.Deactivate)
				}
				if h.Membership != nil {
					cr.With(require("company", catalog.PermissionViewCompany)).Get("/permissions/me", h.Membership.MyPermissions)
					cr.With(require("membership", catalog.PermissionViewUser)).Get("/members", h.Membership.ListMembers)
					cr.With(require("membership", catalog.PermissionManageUsers)).Put("/members/{userID}", h.Membership.AssignRole)
					// Self-leave needs only company access; the service guards the rest.
					cr.With(require("membership", catalog.PermissionViewCompany)).Delete("/members/{userID}", h.Membership.RemoveMember)
				}
				if h.Audit != nil {
					cr.With(require("audit_log", catalog.PermissionViewAuditLogs)).Get("/audit-logs", h.Audit.ListCompanyEntries)
				}
			})

			if h.Audit != nil {
				pr.With(require("audit_log", catalog.PermissionViewAuditLogs)).Get("/audit-logs", h.Audit.ListEntries)
			}
			if h.Settings != nil {
				pr.With(require("system_settings", catalog.PermissionManageSystemSettings)).Put("/settings/company-isolation", h.Settings.SetCompanyIsolation)
			}
		})
	})
}
