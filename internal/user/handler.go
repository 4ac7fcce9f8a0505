package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	coreUser "github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/transport"
)

type ServiceAPI interface {
	Profile(ctx context.Context, u *coreUser.User) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	profile, err := h.Service.Profile(r.Context(), u)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profile)
}
