package membership

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/catalog"
	"github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListMembers(ctx context.Context, companyID int64) ([]*Membership, error)
	UpsertMembership(ctx context.Context, actor *user.User, userID, companyID int64, role catalog.Role) (*Membership, error)
	RemoveMembership(ctx context.Context, actor *user.User, userID, companyID int64) error
}

// PermissionResolver reports a user's effective authority in a company.
type PermissionResolver interface {
	RoleInCompany(ctx context.Context, u *user.User, companyID int64) (catalog.Role, bool, error)
	PermissionsInCompany(ctx context.Context, u *user.User, companyID int64) ([]catalog.Permission, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Resolver PermissionResolver
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, resolver PermissionResolver) *Handler {
	return &Handler{BaseHandler: base, Service: svc, Resolver: resolver}
}

// ListMembers handles GET /companies/{companyID}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	companyID, ok := internal.CompanyIDFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewValidationError("company is required", internal.ErrCodeInvalidCompany))
		return
	}

	members, err := h.Service.ListMembers(r.Context(), companyID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MembersResponse{Members: members})
}

// AssignRole handles PUT /companies/{companyID}/members/{userID}.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	actor, companyID, userID, ok := h.target(w, r)
	if !ok {
		return
	}

	var dto AssignRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	m, err := h.Service.UpsertMembership(r.Context(), actor, userID, companyID, catalog.Role(dto.Role))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, m)
}

// RemoveMember handles DELETE /companies/{companyID}/members/{userID}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, companyID, userID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.Service.RemoveMembership(r.Context(), actor, userID, companyID); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyPermissions handles GET /companies/{companyID}/permissions/me.
func (h *Handler) MyPermissions(w http.ResponseWriter, r *http.Request) {
	u, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}
	companyID, ok := internal.CompanyIDFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewValidationError("company is required", internal.ErrCodeInvalidCompany))
		return
	}

	role, _, err := h.Resolver.RoleInCompany(r.Context(), u, companyID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	perms, err := h.Resolver.PermissionsInCompany(r.Context(), u, companyID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionsResponse{
		CompanyID:    companyID,
		Role:         role,
		IsSuperAdmin: u.IsSuperAdmin,
		Permissions:  perms,
	})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (*user.User, int64, int64, bool) {
	actor, ok := internal.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken)
		return nil, 0, 0, false
	}
	companyID, ok := internal.CompanyIDFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewValidationError("company is required", internal.ErrCodeInvalidCompany))
		return nil, 0, 0, false
	}
	userID, err := transport.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		h.WriteAppError(w, internal.NewValidationFieldError("userID", "user id must be a positive integer", internal.ErrCodeInvalidIdentity))
		return nil, 0, 0, false
	}
	return actor, companyID, userID, true
}
