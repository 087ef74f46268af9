package handler

import (
	"net/http"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

type ingestEventRequest struct {
	ActorID    *string                `json:"actor_id,omitempty"`
	Type       string                 `json:"type"`
	Category   string                 `json:"category"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	SessionRef *string                `json:"session_ref,omitempty"`
	OccurredAt *time.Time             `json:"occurred_at,omitempty"`
}

// IngestEvent accepts one platform event and persists it off the request
// path. The caller gets a 202 as soon as the payload validates.
func (h *CoreHandler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var req ingestEventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	e := &domain.Event{
		ActorID:    req.ActorID,
		Type:       req.Type,
		Category:   req.Category,
		Payload:    req.Payload,
		OriginIP:   clientIP(r),
		UserAgent:  req.UserAgent,
		SessionRef: req.SessionRef,
	}
	if req.OccurredAt != nil {
		e.OccurredAt = req.OccurredAt.UTC()
	}
	if err := e.Validate(); err != nil {
		h.respondErr(w, err)
		return
	}

	h.events.RecordAsync(e)
	response.Accepted(w)
}

// EventsByActor returns an actor's events within the requested window.
func (h *CoreHandler) EventsByActor(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "id")
	if actorID == "" {
		h.respondErr(w, xerrors.ErrActorRequired)
		return
	}
	from, to := parseTimeRange(r)

	events, err := h.events.ListByActor(r.Context(), actorID, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, events)
}

// EventCount returns the number of events of a type seen inside a trailing
// window (default one hour).
func (h *CoreHandler) EventCount(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("type")
	if eventType == "" {
		h.respondErr(w, xerrors.ErrTypeRequired)
		return
	}
	window := time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			response.Error(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}

	count, err := h.events.CountByTypeAndWindow(r.Context(), eventType, window)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"type":   eventType,
		"window": window.String(),
		"count":  count,
	})
}
