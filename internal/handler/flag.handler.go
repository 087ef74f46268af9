package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

type upsertFlagRequest struct {
	Enabled           bool     `json:"enabled"`
	RolloutPercentage int      `json:"rollout_percentage"`
	TargetUsers       []string `json:"target_users,omitempty"`
}

// UpsertFlag creates or reconfigures a feature flag; the change and its
// audit record commit together.
func (h *CoreHandler) UpsertFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondErr(w, xerrors.ErrFlagNameRequired)
		return
	}
	var req upsertFlagRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	actor := h.actor(r)
	f := &domain.FeatureFlag{
		Name:              name,
		Enabled:           req.Enabled,
		RolloutPercentage: req.RolloutPercentage,
		TargetUsers:       req.TargetUsers,
		CreatedBy:         actor.ID,
	}

	auditID, err := h.adminOps.UpsertFlag(r.Context(), f, actor)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"audit_id": auditID})
}

type deleteFlagRequest struct {
	Reason string `json:"reason"`
}

// DeleteFlag removes a flag. Deletion is destructive, so a reason is
// required and audited.
func (h *CoreHandler) DeleteFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondErr(w, xerrors.ErrFlagNameRequired)
		return
	}
	var req deleteFlagRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	auditID, err := h.adminOps.DeleteFlag(r.Context(), name, req.Reason, h.actor(r))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"audit_id": auditID})
}

// GetFlag returns one flag's configuration.
func (h *CoreHandler) GetFlag(w http.ResponseWriter, r *http.Request) {
	f, err := h.flags.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, f)
}

// ListFlags returns every flag.
func (h *CoreHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.flags.List(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, flags)
}

// EvaluateFlag answers whether a flag is on for a given user. Unknown flags
// evaluate to off rather than erroring.
func (h *CoreHandler) EvaluateFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.respondErr(w, xerrors.ErrUserIDRequired)
		return
	}

	enabled, err := h.flags.Enabled(r.Context(), name, userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}
