package handler

import (
	"net/http"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/middleware"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

type issueSessionRequest struct {
	UserID    string `json:"user_id"`
	UserAgent string `json:"user_agent,omitempty"`
	TTL       string `json:"ttl,omitempty"`
}

// IssueSession creates a privileged session and returns its opaque token.
// TTL is optional; the configured default applies when omitted.
func (h *CoreHandler) IssueSession(w http.ResponseWriter, r *http.Request) {
	var req issueSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}
	if req.UserID == "" {
		h.respondErr(w, xerrors.ErrUserIDRequired)
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil || d <= 0 {
			response.Error(w, http.StatusBadRequest, "invalid ttl")
			return
		}
		ttl = d
	}

	sess, err := h.sessions.Issue(r.Context(), req.UserID, clientIP(r), req.UserAgent, ttl)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, sess)
}

// CurrentSession returns the session backing the caller's token. The auth
// middleware has already touched it.
func (h *CoreHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetToken(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "missing session token")
		return
	}
	sess, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sess)
}

type revokeSessionRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// RevokeSession kills one session and audits the revocation atomically.
func (h *CoreHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	var req revokeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	auditID, err := h.adminOps.RevokeSession(r.Context(), req.Token, req.Reason, h.actor(r))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"audit_id": auditID})
}

type revokeUserSessionsRequest struct {
	Reason string `json:"reason"`
}

// RevokeUserSessions kills every active session for a user, the incident
// response path.
func (h *CoreHandler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.respondErr(w, xerrors.ErrUserIDRequired)
		return
	}
	var req revokeUserSessionsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	revoked, auditID, err := h.adminOps.RevokeUserSessions(r.Context(), userID, req.Reason, h.actor(r))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"revoked":  revoked,
		"audit_id": auditID,
	})
}

// ListActiveSessions returns a user's currently valid sessions.
func (h *CoreHandler) ListActiveSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.respondErr(w, xerrors.ErrUserIDRequired)
		return
	}

	sessions, err := h.sessions.ListActive(r.Context(), userID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sessions)
}
