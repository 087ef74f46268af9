package handler

import (
	"net/http"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

// AuditTail returns the most recent audit entries, newest first.
func (h *CoreHandler) AuditTail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.Tail(r.Context(), parseLimit(r, 50))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// AuditByTarget returns the full trail for one target, e.g. every admin
// action ever taken against a given listing.
func (h *CoreHandler) AuditByTarget(w http.ResponseWriter, r *http.Request) {
	target := domain.Target{
		Kind: domain.TargetKind(chi.URLParam(r, "type")),
		ID:   chi.URLParam(r, "id"),
	}
	if err := target.Validate(); err != nil {
		h.respondErr(w, err)
		return
	}

	entries, err := h.audit.ByTarget(r.Context(), target)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

// AuditByActor returns one admin's actions within the requested window.
func (h *CoreHandler) AuditByActor(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "id")
	if actorID == "" {
		h.respondErr(w, xerrors.ErrActorRequired)
		return
	}
	from, to := parseTimeRange(r)

	entries, err := h.audit.ByActor(r.Context(), actorID, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, entries)
}
