package worker

import (
	"context"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/internal/usecase"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	recomputeAttempts = 3
	grantRetention    = 30 * 24 * time.Hour
)

// AggregateWorker recomputes the previous day's metrics on a cron schedule
// and prunes long-expired permission grants while it is at it.
type AggregateWorker struct {
	metrics  *usecase.MetricAggregator
	perms    *usecase.PermissionRegistry
	logger   *zap.Logger
	cronSpec string
	cron     *cron.Cron
}

func NewAggregateWorker(
	metrics *usecase.MetricAggregator,
	perms *usecase.PermissionRegistry,
	logger *zap.Logger,
	cronSpec string,
) *AggregateWorker {
	return &AggregateWorker{
		metrics:  metrics,
		perms:    perms,
		logger:   logger,
		cronSpec: cronSpec,
	}
}

func (w *AggregateWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting aggregate worker", zap.String("schedule", w.cronSpec))

	c := cron.New()
	if _, err := c.AddFunc(w.cronSpec, func() {
		w.RunOnce(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	w.cron = c
	return nil
}

func (w *AggregateWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.logger.Info("Aggregate worker stopped")
}

// RunOnce aggregates yesterday's metrics. Each metric retries independently;
// recompute replaces the stored value, so a retry after a partial failure is
// harmless.
func (w *AggregateWorker) RunOnce(ctx context.Context) {
	day := domain.TruncateToDay(time.Now().UTC().Add(-24 * time.Hour))
	w.logger.Info("Starting scheduled aggregation", zap.Time("day", day))

	for _, name := range w.metrics.MetricNames() {
		w.recomputeWithRetry(ctx, day, name)
	}

	pruned, err := w.perms.PruneExpired(ctx, time.Now().UTC().Add(-grantRetention))
	if err != nil {
		w.logger.Error("Grant pruning failed", zap.Error(err))
	} else if pruned > 0 {
		w.logger.Info("Pruned expired grants", zap.Int64("count", pruned))
	}
}

func (w *AggregateWorker) recomputeWithRetry(ctx context.Context, day time.Time, name string) {
	backoff := time.Second
	for attempt := 1; attempt <= recomputeAttempts; attempt++ {
		value, err := w.metrics.Recompute(ctx, day, name, nil)
		if err == nil {
			w.logger.Info("Metric aggregated",
				zap.String("metric", name),
				zap.Float64("value", value))
			return
		}
		w.logger.Warn("Metric aggregation failed",
			zap.String("metric", name),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return
		}
	}
}
