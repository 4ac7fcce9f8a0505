package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/audit"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/transport"
	"github.com/frahmantamala/company-authz/pkg/logger"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	CurrentUser(ctx context.Context, claims *Claims) (*user.User, error)
	Logout(ctx context.Context, u *user.User)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Audit   audit.Recorder
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, recorder audit.Recorder) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
		Audit:       recorder,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout runs behind AuthMiddleware. Tokens are stateless, so it only
// records the event.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}
	h.Service.Logout(r.Context(), u)
	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token into the acting user. Rejected
// tokens leave a security entry with no actor.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.reject(w, r, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken), "missing_token")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.reject(w, r, err, "invalid_token")
			return
		}

		u, err := h.Service.CurrentUser(r.Context(), claims)
		if err != nil {
			if internal.IsErrorType(err, internal.ErrorTypeStorage) {
				h.WriteAppError(w, err)
				return
			}
			h.reject(w, r, err, "unknown_user")
			return
		}

		ctx := internal.ContextWithUser(r.Context(), u)
		ctx = logger.With(ctx, "user_id", u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error, reason string) {
	if _, logErr := h.Audit.LogAction(r.Context(), audit.Record{
		Action:          catalog.ActionDenied,
		ResourceType:    resourceSession,
		Details:         map[string]any{"reason": reason, "path": r.URL.Path},
		IsSecurityEvent: true,
	}); logErr != nil {
		h.Logger.Warn("audit entry not recorded", "action", catalog.ActionDenied, "error", logErr)
	}
	h.WriteAppError(w, err)
}
