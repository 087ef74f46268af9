package handler

import (
	"net/http"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

type grantPermissionRequest struct {
	UserID       string     `json:"user_id"`
	Permission   string     `json:"permission"`
	ResourceType *string    `json:"resource_type,omitempty"`
	ResourceID   *string    `json:"resource_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// GrantPermission grants or refreshes a scoped permission; the grant and its
// audit record commit together.
func (h *CoreHandler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var req grantPermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	actor := h.actor(r)
	g := &domain.PermissionGrant{
		UserID:       req.UserID,
		Permission:   req.Permission,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		GrantedBy:    actor.ID,
		ExpiresAt:    req.ExpiresAt,
	}

	auditID, err := h.adminOps.GrantPermission(r.Context(), g, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"grant_id": g.ID,
		"audit_id": auditID,
	})
}

type revokePermissionRequest struct {
	UserID       string  `json:"user_id"`
	Permission   string  `json:"permission"`
	ResourceType *string `json:"resource_type,omitempty"`
	ResourceID   *string `json:"resource_id,omitempty"`
	Reason       string  `json:"reason"`
}

// RevokePermission removes a grant, auditing the removal in the same
// transaction.
func (h *CoreHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	var req revokePermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	auditID, err := h.adminOps.RevokePermission(r.Context(), req.UserID, req.Permission,
		req.ResourceType, req.ResourceID, req.Reason, h.actor(r))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"audit_id": auditID})
}

// CheckPermission answers whether a user currently holds a permission for a
// given scope. Query params: permission (required), resource_type, resource_id.
func (h *CoreHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	permission := r.URL.Query().Get("permission")
	if userID == "" {
		h.respondErr(w, xerrors.ErrUserIDRequired)
		return
	}
	if permission == "" {
		response.Error(w, http.StatusBadRequest, "permission is required")
		return
	}

	var resourceType, resourceID *string
	if v := r.URL.Query().Get("resource_type"); v != "" {
		resourceType = &v
	}
	if v := r.URL.Query().Get("resource_id"); v != "" {
		resourceID = &v
	}

	allowed, err := h.perms.Check(r.Context(), userID, permission, resourceType, resourceID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

// ListPermissions returns a user's live grants.
func (h *CoreHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.respondErr(w, xerrors.ErrUserIDRequired)
		return
	}

	grants, err := h.perms.ListForUser(r.Context(), userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, grants)
}
