package audit

import (
	"context"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/transport"
)

type QueryAPI interface {
	Query(ctx context.Context, filter Filter) ([]*Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Service QueryAPI
}

func NewHandler(base *transport.BaseHandler, svc QueryAPI) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// ListCompanyEntries handles GET /companies/{companyID}/audit-logs. The
// company comes from the resolved request scope, never from the query string.
func (h *Handler) ListCompanyEntries(w http.ResponseWriter, r *http.Request) {
	companyID, ok := internal.CompanyIDFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewValidationError("company is required", internal.ErrCodeInvalidCompany))
		return
	}

	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	filter.CompanyID = &companyID

	h.list(w, r, filter)
}

// ListEntries handles GET /audit-logs across every company.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, perr := parseID(v)
		if perr != nil {
			h.WriteAppError(w, perr)
			return
		}
		filter.CompanyID = &id
	}

	h.list(w, r, filter)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter Filter) {
	entries, err := h.Service.Query(r.Context(), filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Entries: entries, Count: len(entries)})
}

func parseID(v string) (int64, error) {
	id, err := transport.ParseID(v)
	if err != nil {
		return 0, internal.NewValidationFieldError("company_id", "company_id must be a positive integer", internal.ErrCodeInvalidCompany)
	}
	return id, nil
}
