package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DailyMetric is a derived pre-aggregation row. Exactly one row exists per
// (day, metric name, normalized dimensions); the value is always
// reconstructable from source data, never a source of truth itself.
type DailyMetric struct {
	Day        time.Time         `json:"day"`
	MetricName string            `json:"metric_name"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	Value      float64           `json:"value"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NormalizeDimensions canonicalizes a dimension set into a stable key:
// keys sorted ascending, serialized as k=v pairs joined by '&'. Two maps that
// are equal as sets collide to the same key regardless of insertion order.
// An empty or nil map normalizes to "".
func NormalizeDimensions(dims map[string]string) string {
	if len(dims) == 0 {
		return ""
	}
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+dims[k])
	}
	return strings.Join(parts, "&")
}

// MarshalDimensions serializes dimensions with sorted keys for the jsonb
// column, so the stored blob matches the normalized identity.
func MarshalDimensions(dims map[string]string) ([]byte, error) {
	if dims == nil {
		dims = map[string]string{}
	}
	return json.Marshal(dims) // encoding/json sorts map keys
}

// TruncateToDay drops the time-of-day component in UTC.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
