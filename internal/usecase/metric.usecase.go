package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"go.uber.org/zap"
)

type MetricRepo interface {
	Replace(ctx context.Context, m *domain.DailyMetric) error
	Get(ctx context.Context, day time.Time, metricName string, dims map[string]string) (*domain.DailyMetric, error)
	Series(ctx context.Context, metricName string, from, to time.Time) ([]*domain.DailyMetric, error)
}

// MetricSource derives a metric's full value for one day and dimension set
// from source-of-truth data. Sources must be pure over their inputs: running
// one twice yields the same value.
type MetricSource func(ctx context.Context, day time.Time, dims map[string]string) (float64, error)

// MetricAggregator maintains the daily pre-aggregation store. Recompute
// replaces the stored row rather than incrementing it, so at-least-once
// ingestion and re-run jobs cannot double-count.
type MetricAggregator struct {
	repo    MetricRepo
	sources map[string]MetricSource
	logger  *zap.Logger
}

func NewMetricAggregator(repo MetricRepo, logger *zap.Logger) *MetricAggregator {
	return &MetricAggregator{
		repo:    repo,
		sources: make(map[string]MetricSource),
		logger:  logger,
	}
}

// Register binds a metric name to its source. Later registrations replace
// earlier ones.
func (m *MetricAggregator) Register(metricName string, source MetricSource) {
	m.sources[metricName] = source
}

// MetricNames returns the registered metrics in stable order.
func (m *MetricAggregator) MetricNames() []string {
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Recompute derives the metric for (day, name, dims) from source data and
// upserts the single matching row. Idempotent: any number of runs with
// unchanged source data converge to the same stored value.
func (m *MetricAggregator) Recompute(ctx context.Context, day time.Time, metricName string, dims map[string]string) (float64, error) {
	source, ok := m.sources[metricName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", xerrors.ErrUnknownMetric, metricName)
	}

	day = domain.TruncateToDay(day)
	value, err := source(ctx, day, dims)
	if err != nil {
		return 0, fmt.Errorf("compute %s for %s: %w", metricName, day.Format("2006-01-02"), err)
	}

	row := &domain.DailyMetric{
		Day:        day,
		MetricName: metricName,
		Dimensions: dims,
		Value:      value,
	}
	if err := m.repo.Replace(ctx, row); err != nil {
		return 0, fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}

	m.logger.Debug("metric recomputed",
		zap.String("metric", metricName),
		zap.Time("day", day),
		zap.Float64("value", value))

	return value, nil
}

// RecomputeDay runs every registered metric for the day (no extra
// dimensions). Failures are collected per metric, not short-circuited: a
// missing metric is a gap in the dashboard, not a crash.
func (m *MetricAggregator) RecomputeDay(ctx context.Context, day time.Time) map[string]error {
	failures := make(map[string]error)
	for _, name := range m.MetricNames() {
		if _, err := m.Recompute(ctx, day, name, nil); err != nil {
			failures[name] = err
			m.logger.Error("metric recompute failed",
				zap.String("metric", name),
				zap.Time("day", day),
				zap.Error(err))
		}
	}
	return failures
}

func (m *MetricAggregator) Series(ctx context.Context, metricName string, from, to time.Time) ([]*domain.DailyMetric, error) {
	return m.repo.Series(ctx, metricName, from, to)
}
