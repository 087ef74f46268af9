package usecase

import (
	"context"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"

	"go.uber.org/zap"
)

// Narrow read-side views of the sibling services, so the dashboard can be
// exercised against any one of them being down.
type alertReader interface {
	Unresolved(ctx context.Context, minSeverity domain.Severity) ([]*domain.SecurityEvent, error)
	CountOpenBySeverity(ctx context.Context) (map[domain.Severity]int, error)
}

type auditTailReader interface {
	Tail(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}

type seriesReader interface {
	Series(ctx context.Context, metricName string, from, to time.Time) ([]*domain.DailyMetric, error)
	MetricNames() []string
}

// AlertsSection carries unresolved security events, most severe first. The
// banner flag is set when anything at or above high is open.
type AlertsSection struct {
	Items      []*domain.SecurityEvent `json:"items,omitempty"`
	OpenCounts map[domain.Severity]int `json:"open_counts,omitempty"`
	Banner     bool                    `json:"banner"`
	Error      string                  `json:"error,omitempty"`
}

type AuditSection struct {
	Items []*domain.AuditEntry `json:"items,omitempty"`
	Error string               `json:"error,omitempty"`
}

type MetricSeries struct {
	MetricName string                `json:"metric_name"`
	Points     []*domain.DailyMetric `json:"points,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Overview is the composed dashboard payload. Sections fail independently:
// one sub-query outage flags that section and leaves the rest intact.
type Overview struct {
	Window      string         `json:"window"`
	GeneratedAt time.Time      `json:"generated_at"`
	Alerts      AlertsSection  `json:"alerts"`
	AuditTail   AuditSection   `json:"audit_tail"`
	Metrics     []MetricSeries `json:"metrics"`
}

// DashboardService is pure read composition over the security feed, the
// audit log and the pre-aggregated metrics. It holds no state of its own.
type DashboardService struct {
	alerts  alertReader
	audit   auditTailReader
	metrics seriesReader
	logger  *zap.Logger
	now     func() time.Time
}

func NewDashboardService(alerts alertReader, audit auditTailReader, metrics seriesReader, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		alerts:  alerts,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

const auditTailLimit = 20

// Overview assembles the admin landing page data for the trailing window.
// Never fails as a whole: each section degrades independently.
func (d *DashboardService) Overview(ctx context.Context, window time.Duration) *Overview {
	now := d.now().UTC()
	out := &Overview{
		Window:      window.String(),
		GeneratedAt: now,
	}

	items, err := d.alerts.Unresolved(ctx, domain.SeverityLow)
	if err != nil {
		d.logger.Warn("dashboard alerts section failed", zap.Error(err))
		out.Alerts.Error = "security feed unavailable"
	} else {
		out.Alerts.Items = items
		for _, e := range items {
			if e.Severity.AtLeast(domain.SeverityHigh) {
				out.Alerts.Banner = true
				break
			}
		}
		if counts, err := d.alerts.CountOpenBySeverity(ctx); err == nil {
			out.Alerts.OpenCounts = counts
		}
	}

	tail, err := d.audit.Tail(ctx, auditTailLimit)
	if err != nil {
		d.logger.Warn("dashboard audit section failed", zap.Error(err))
		out.AuditTail.Error = "audit log unavailable"
	} else {
		out.AuditTail.Items = tail
	}

	from := now.Add(-window)
	for _, name := range d.metrics.MetricNames() {
		series := MetricSeries{MetricName: name}
		points, err := d.metrics.Series(ctx, name, from, now)
		if err != nil {
			d.logger.Warn("dashboard metric series failed",
				zap.String("metric", name), zap.Error(err))
			series.Error = "series unavailable"
		} else {
			series.Points = points
		}
		out.Metrics = append(out.Metrics, series)
	}

	return out
}
