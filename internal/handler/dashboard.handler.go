package handler

import (
	"net/http"
	"time"

	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/go-chi/chi/v5"
)

type recomputeRequest struct {
	Day        string            `json:"day"`
	Metric     string            `json:"metric,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// RecomputeMetrics re-derives daily aggregates from the event store. With a
// metric name it recomputes that one cell; without, the whole registered set
// for the day. Recompute replaces, so retries are safe.
func (h *CoreHandler) RecomputeMetrics(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, err)
		return
	}

	day := time.Now().UTC()
	if req.Day != "" {
		t, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "invalid day, want YYYY-MM-DD")
			return
		}
		day = t
	}

	if req.Metric != "" {
		value, err := h.metrics.Recompute(r.Context(), day, req.Metric, req.Dimensions)
		if err != nil {
			h.respondErr(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"metric": req.Metric,
			"value":  value,
		})
		return
	}

	failures := h.metrics.RecomputeDay(r.Context(), day)
	failed := make(map[string]string, len(failures))
	for name, err := range failures {
		failed[name] = err.Error()
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"metrics": h.metrics.MetricNames(),
		"failed":  failed,
	})
}

// MetricSeries returns one metric's daily values over a date range.
func (h *CoreHandler) MetricSeries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondErr(w, xerrors.ErrUnknownMetric)
		return
	}
	from, to := parseTimeRange(r)

	series, err := h.metrics.Series(r.Context(), name, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	response.JSON(w, http.StatusOK, series)
}

// DashboardOverview assembles the admin landing view: open alerts, recent
// audit activity, and metric series over the requested window. Sections
// degrade independently when a backing store is down.
func (h *CoreHandler) DashboardOverview(w http.ResponseWriter, r *http.Request) {
	window := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			response.Error(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}

	response.JSON(w, http.StatusOK, h.dashboard.Overview(r.Context(), window))
}
