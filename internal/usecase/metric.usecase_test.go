package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecompute_ReplacesNotIncrements(t *testing.T) {
	repo := newFakeMetricRepo()
	agg := NewMetricAggregator(repo, zap.NewNop())

	value := 10.0
	agg.Register("events.views", func(ctx context.Context, day time.Time, dims map[string]string) (float64, error) {
		return value, nil
	})

	ctx := context.Background()
	day := time.Date(2026, 8, 29, 13, 45, 0, 0, time.UTC)

	got, err := agg.Recompute(ctx, day, "events.views", nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	value = 25.0
	got, err = agg.Recompute(ctx, day, "events.views", nil)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got)

	assert.Len(t, repo.rows, 1, "re-running a day replaces the row")

	stored, err := repo.Get(ctx, domain.TruncateToDay(day), "events.views", nil)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stored.Value)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), stored.Day)
}

func TestRecompute_UnknownMetric(t *testing.T) {
	agg := NewMetricAggregator(newFakeMetricRepo(), zap.NewNop())

	_, err := agg.Recompute(context.Background(), time.Now(), "nope", nil)

	assert.ErrorIs(t, err, xerrors.ErrUnknownMetric)
}

func TestRecompute_DimensionsDistinguishRows(t *testing.T) {
	repo := newFakeMetricRepo()
	agg := NewMetricAggregator(repo, zap.NewNop())
	agg.Register("events.views", func(ctx context.Context, day time.Time, dims map[string]string) (float64, error) {
		if dims["category"] == "housing" {
			return 3, nil
		}
		return 7, nil
	})

	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	_, err := agg.Recompute(ctx, day, "events.views", map[string]string{"category": "housing"})
	require.NoError(t, err)
	_, err = agg.Recompute(ctx, day, "events.views", map[string]string{"category": "jobs"})
	require.NoError(t, err)

	assert.Len(t, repo.rows, 2)
}

func TestRecomputeDay_CollectsFailuresWithoutStopping(t *testing.T) {
	repo := newFakeMetricRepo()
	agg := NewMetricAggregator(repo, zap.NewNop())

	agg.Register("ok.metric", func(ctx context.Context, day time.Time, dims map[string]string) (float64, error) {
		return 1, nil
	})
	boom := errors.New("source query timeout")
	agg.Register("bad.metric", func(ctx context.Context, day time.Time, dims map[string]string) (float64, error) {
		return 0, boom
	})

	failures := agg.RecomputeDay(context.Background(), time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))

	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures["bad.metric"], boom)
	assert.Len(t, repo.rows, 1, "healthy metrics still land")
}

func TestSeries_OrderedByDay(t *testing.T) {
	repo := newFakeMetricRepo()
	agg := NewMetricAggregator(repo, zap.NewNop())

	values := map[string]float64{"2026-08-27": 5, "2026-08-28": 9, "2026-08-29": 2}
	agg.Register("events.logins", func(ctx context.Context, day time.Time, dims map[string]string) (float64, error) {
		return values[day.Format("2006-01-02")], nil
	})

	ctx := context.Background()
	for _, d := range []string{"2026-08-29", "2026-08-27", "2026-08-28"} {
		day, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		_, err = agg.Recompute(ctx, day, "events.logins", nil)
		require.NoError(t, err)
	}

	series, err := agg.Series(ctx,
		"events.logins",
		time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 5.0, series[0].Value)
	assert.Equal(t, 9.0, series[1].Value)
	assert.Equal(t, 2.0, series[2].Value)
}

func TestRegisterEventMetrics_CountsFromEvents(t *testing.T) {
	repo := newFakeMetricRepo()
	agg := NewMetricAggregator(repo, zap.NewNop())
	RegisterEventMetrics(agg, &fakeEventCounter{
		counts: map[string]float64{"view": 12, "search": 4},
		actors: 6,
	})

	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	views, err := agg.Recompute(ctx, day, "events.views", nil)
	require.NoError(t, err)
	assert.Equal(t, 12.0, views)

	active, err := agg.Recompute(ctx, day, "users.active", nil)
	require.NoError(t, err)
	assert.Equal(t, 6.0, active)

	assert.Contains(t, agg.MetricNames(), "events.searches")
}

type fakeEventCounter struct {
	counts map[string]float64
	actors float64
}

func (c *fakeEventCounter) CountOnDay(ctx context.Context, eventType, category string, day time.Time) (float64, error) {
	return c.counts[eventType], nil
}

func (c *fakeEventCounter) DistinctActorsOnDay(ctx context.Context, day time.Time) (float64, error) {
	return c.actors, nil
}
