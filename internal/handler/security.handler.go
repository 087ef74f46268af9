package handler

import (
	"net/http"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/internal/usecase"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

type raiseSecurityEventRequest struct {
	SubjectID   *string                `json:"subject_id,omitempty"`
	Type        string                 `json:"type"`
	Severity    domain.Severity        `json:"severity,omitempty"`
	Description string                 `json:"description"`
	OriginIP    string                 `json:"origin_ip,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// RaiseSecurityEvent flags a new security condition. Severity defaults to
// medium when omitted.
func (h *CoreHandler) RaiseSecurityEvent(w http.ResponseWriter, r *http.Request) {
	var req raiseSecurityEventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	e := &domain.SecurityEvent{
		SubjectID:   req.SubjectID,
		Type:        req.Type,
		Severity:    req.Severity,
		Description: req.Description,
		OriginIP:    req.OriginIP,
		Metadata:    req.Metadata,
	}
	if e.OriginIP == "" {
		e.OriginIP = clientIP(r)
	}

	id, err := h.security.Raise(r.Context(), e)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UnresolvedSecurityEvents lists open events at or above min_severity,
// most severe first.
func (h *CoreHandler) UnresolvedSecurityEvents(w http.ResponseWriter, r *http.Request) {
	minSeverity := domain.SeverityLow
	if v := r.URL.Query().Get("min_severity"); v != "" {
		minSeverity = domain.Severity(v)
		if !minSeverity.Valid() {
			response.Error(w, http.StatusBadRequest, "invalid min_severity")
			return
		}
	}

	events, err := h.security.Unresolved(r.Context(), minSeverity)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, events)
}

// GetSecurityEvent returns one event by id.
func (h *CoreHandler) GetSecurityEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.security.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, e)
}

// ResolveSecurityEvent marks an event resolved and records the action in the
// audit log atomically. A second resolve is a no-op acknowledged as such.
func (h *CoreHandler) ResolveSecurityEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondErr(w, xerrors.ErrNotFound)
		return
	}

	status, err := h.adminOps.ResolveSecurityEvent(r.Context(), id, h.actor(r))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]usecase.ResolveStatus{"status": status})
}
