package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/transport"
)

type ServiceAPI interface {
	CompanyIsolationEnforced() bool
	SetCompanyIsolation(ctx context.Context, actor *user.User, enabled bool) error
}

type IsolationDTO struct {
	Enabled *bool `json:"enabled"`
}

type IsolationResponse struct {
	EnforceCompanyIsolation bool `json:"enforce_company_isolation"`
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// SetCompanyIsolation handles PUT /settings/company-isolation.
func (h *Handler) SetCompanyIsolation(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var dto IsolationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil || dto.Enabled == nil {
		h.WriteAppError(w, internal.NewValidationFieldError("enabled", "enabled must be true or false", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.SetCompanyIsolation(r.Context(), u, *dto.Enabled); err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, IsolationResponse{EnforceCompanyIsolation: h.Service.CompanyIsolationEnforced()})
}
