package company

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *user.User, dto CreateCompanyDTO) (*Company, error)
	Get(ctx context.Context, id int64) (*Company, error)
	Deactivate(ctx context.Context, actor *user.User, id int64) (*Company, error)
}

// AccessLister resolves the companies a user may see.
type AccessLister interface {
	GetAccessibleCompanies(ctx context.Context, u *user.User) ([]*Company, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Access  AccessLister
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, access AccessLister) *Handler {
	return &Handler{BaseHandler: base, Service: svc, Access: access}
}

type createResponse struct {
	Company *Company `json:"company"`
	Warning string   `json:"warning,omitempty"`
}

// List handles GET /companies.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	companies, err := h.Access.GetAccessibleCompanies(r.Context(), u)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, CompaniesResponse{Companies: companies})
}

// Create handles POST /companies.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	var dto CreateCompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	created, err := h.Service.Create(r.Context(), u, dto)
	if err != nil {
		if created == nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusCreated, createResponse{Company: created, Warning: "initial admin was not assigned: " + err.Error()})
		return
	}
	h.WriteJSON(w, http.StatusCreated, createResponse{Company: created})
}

// Get handles GET /companies/{companyID}. Access was already checked by the
// permission middleware.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := transport.ParseID(chi.URLParam(r, "companyID"))
	if err != nil {
		h.WriteAppError(w, internal.NewValidationFieldError("companyID", "company id must be a positive integer", internal.ErrCodeInvalidCompany))
		return
	}

	c, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

// Deactivate handles POST /companies/{companyID}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}
	id, err := transport.ParseID(chi.URLParam(r, "companyID"))
	if err != nil {
		h.WriteAppError(w, internal.NewValidationFieldError("companyID", "company id must be a positive integer", internal.ErrCodeInvalidCompany))
		return
	}

	c, err := h.Service.Deactivate(r.Context(), u, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}
