package usecase

import (
	"context"
	"time"
)

// EventCounter is the slice of the event store the built-in metric sources
// pull from.
type EventCounter interface {
	CountOnDay(ctx context.Context, eventType, category string, day time.Time) (float64, error)
	DistinctActorsOnDay(ctx context.Context, day time.Time) (float64, error)
}

// RegisterEventMetrics wires the standard daily metrics onto the aggregator.
// Each source recounts from the events table; the optional "category"
// dimension narrows a count to one marketplace vertical.
func RegisterEventMetrics(agg *MetricAggregator, events EventCounter) {
	countOf := func(eventType string) MetricSource {
		return func(ctx context.Context, day time.Time, dims map[string]string) (float64, error) {
			return events.CountOnDay(ctx, eventType, dims["category"], day)
		}
	}

	agg.Register("events.views", countOf("view"))
	agg.Register("events.searches", countOf("search"))
	agg.Register("events.logins", countOf("login"))
	agg.Register("events.inquiries", countOf("inquiry"))
	agg.Register("events.messages", countOf("message_send"))
	agg.Register("users.active", func(ctx context.Context, day time.Time, _ map[string]string) (float64, error) {
		return events.DistinctActorsOnDay(ctx, day)
	})
}
