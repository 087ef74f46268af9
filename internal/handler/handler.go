package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/middleware"
	"github.com/Excel18-coder/vconect-sub001/internal/usecase"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"go.uber.org/zap"
)

// CoreHandler exposes the audit/analytics core over HTTP.
type CoreHandler struct {
	events    *usecase.EventStore
	audit     *usecase.AuditLog
	security  *usecase.SecurityFeed
	perms     *usecase.PermissionRegistry
	sessions  *usecase.SessionRegistry
	flags     *usecase.FeatureGate
	metrics   *usecase.MetricAggregator
	dashboard *usecase.DashboardService
	adminOps  *usecase.AdminOps
	logger    *zap.Logger
}

func NewCoreHandler(
	events *usecase.EventStore,
	audit *usecase.AuditLog,
	security *usecase.SecurityFeed,
	perms *usecase.PermissionRegistry,
	sessions *usecase.SessionRegistry,
	flags *usecase.FeatureGate,
	metrics *usecase.MetricAggregator,
	dashboard *usecase.DashboardService,
	adminOps *usecase.AdminOps,
	logger *zap.Logger,
) *CoreHandler {
	return &CoreHandler{
		events:    events,
		audit:     audit,
		security:  security,
		perms:     perms,
		sessions:  sessions,
		flags:     flags,
		metrics:   metrics,
		dashboard: dashboard,
		adminOps:  adminOps,
		logger:    logger,
	}
}

// respondErr maps the error taxonomy onto HTTP statuses.
func (h *CoreHandler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case xerrors.IsValidation(err):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrSessionInvalid):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, xerrors.ErrNotFound), errors.Is(err, xerrors.ErrFlagNotFound),
		errors.Is(err, xerrors.ErrUnknownMetric):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrStorageUnavailable):
		h.logger.Error("storage unavailable", zap.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		h.logger.Error("request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, xerrors.ErrInternalServer.Error())
	}
}

// decodeJSON parses a request body into dst; failures land in the
// validation error class so respondErr maps them to 400.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrInvalidRequest, err)
	}
	return nil
}

// actor resolves the acting admin from the authenticated request context.
func (h *CoreHandler) actor(r *http.Request) usecase.AdminActor {
	adminID, _ := middleware.GetAdminID(r.Context())
	return usecase.AdminActor{
		ID:       adminID,
		OriginIP: clientIP(r),
	}
}

// parseTimeRange reads from/to query params (RFC 3339), defaulting to the
// trailing 24 hours.
func parseTimeRange(r *http.Request) (time.Time, time.Time) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}
	return from, to
}

func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
