package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MetricRepository owns analytics_daily. Rows are replaced, never
// incremented: recompute writes the full value so retries and backfills
// converge instead of double-counting.
type MetricRepository struct {
	db *pgxpool.Pool
}

func NewMetricRepository(db *pgxpool.Pool) *MetricRepository {
	return &MetricRepository{db: db}
}

func (r *MetricRepository) Replace(ctx context.Context, m *domain.DailyMetric) error {
	dimsKey := domain.NormalizeDimensions(m.Dimensions)
	dimsJSON, err := domain.MarshalDimensions(m.Dimensions)
	if err != nil {
		return fmt.Errorf("marshal dimensions: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO analytics_daily (day, metric_name, dimensions_key, dimensions, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day, metric_name, dimensions_key) DO UPDATE SET
			value = EXCLUDED.value,
			dimensions = EXCLUDED.dimensions,
			updated_at = NOW()
		RETURNING updated_at
	`,
		domain.TruncateToDay(m.Day),
		m.MetricName,
		dimsKey,
		dimsJSON,
		m.Value,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("replace daily metric %s: %w", m.MetricName, err)
	}
	return nil
}

func (r *MetricRepository) Get(ctx context.Context, day time.Time, metricName string, dims map[string]string) (*domain.DailyMetric, error) {
	var (
		m        domain.DailyMetric
		dimsJSON []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT day, metric_name, dimensions, value, updated_at
		FROM analytics_daily
		WHERE day = $1 AND metric_name = $2 AND dimensions_key = $3
	`, domain.TruncateToDay(day), metricName, domain.NormalizeDimensions(dims)).Scan(
		&m.Day,
		&m.MetricName,
		&dimsJSON,
		&m.Value,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query daily metric %s: %w", metricName, err)
	}
	if err := json.Unmarshal(dimsJSON, &m.Dimensions); err != nil {
		return nil, fmt.Errorf("unmarshal dimensions: %w", err)
	}
	return &m, nil
}

// Series returns the stored points for a metric over [from, to], oldest
// first. Missing days are simply absent; the dashboard renders gaps.
func (r *MetricRepository) Series(ctx context.Context, metricName string, from, to time.Time) ([]*domain.DailyMetric, error) {
	rows, err := r.db.Query(ctx, `
		SELECT day, metric_name, dimensions, value, updated_at
		FROM analytics_daily
		WHERE metric_name = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC, dimensions_key ASC
	`, metricName, domain.TruncateToDay(from), domain.TruncateToDay(to))
	if err != nil {
		return nil, fmt.Errorf("query metric series %s: %w", metricName, err)
	}
	defer rows.Close()

	var series []*domain.DailyMetric
	for rows.Next() {
		var (
			m        domain.DailyMetric
			dimsJSON []byte
		)
		if err := rows.Scan(&m.Day, &m.MetricName, &dimsJSON, &m.Value, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		if err := json.Unmarshal(dimsJSON, &m.Dimensions); err != nil {
			return nil, fmt.Errorf("unmarshal dimensions: %w", err)
		}
		series = append(series, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric rows: %w", err)
	}
	return series, nil
}
