package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository persists activity events. Append-only: there is no update
// or delete path here.
type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Insert(ctx context.Context, e *domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO events (id, actor_id, type, category, payload, origin_ip, user_agent, session_ref, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		e.ID,
		e.ActorID,
		e.Type,
		e.Category,
		payload,
		e.OriginIP,
		e.UserAgent,
		e.SessionRef,
		e.OccurredAt,
	)
	if err != nil {
		return &xerrors.RepoError{
			Entity: "event",
			Code:   xerrors.ParsePGErrorCode(err),
			Msg:    err.Error(),
			Ref:    e.ID,
		}
	}
	return nil
}

func (r *EventRepository) ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, type, category, payload, origin_ip, user_agent, session_ref, occurred_at
		FROM events
		WHERE actor_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at DESC, id DESC
	`, actorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query events by actor: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *EventRepository) CountByTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM events
		WHERE type = $1 AND occurred_at >= $2
	`, eventType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events by type: %w", err)
	}
	return count, nil
}

// CountOnDay counts events of a type on a UTC day, optionally narrowed by
// category. Feeds the daily aggregator.
func (r *EventRepository) CountOnDay(ctx context.Context, eventType, category string, day time.Time) (float64, error) {
	start := domain.TruncateToDay(day)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT COUNT(*) FROM events
		WHERE type = $1 AND occurred_at >= $2 AND occurred_at < $3
	`
	args := []interface{}{eventType, start, end}
	if category != "" {
		query += ` AND category = $4`
		args = append(args, category)
	}

	var count float64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events on day: %w", err)
	}
	return count, nil
}

// DistinctActorsOnDay counts unique non-anonymous actors on a UTC day.
func (r *EventRepository) DistinctActorsOnDay(ctx context.Context, day time.Time) (float64, error) {
	start := domain.TruncateToDay(day)
	end := start.Add(24 * time.Hour)

	var count float64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT actor_id) FROM events
		WHERE actor_id IS NOT NULL AND occurred_at >= $1 AND occurred_at < $2
	`, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count distinct actors: %w", err)
	}
	return count, nil
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			payload []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.Type,
			&e.Category,
			&payload,
			&e.OriginIP,
			&e.UserAgent,
			&e.SessionRef,
			&e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal event payload: %w", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
