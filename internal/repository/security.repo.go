package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SecurityRepository struct {
	db Querier
}

func NewSecurityRepository(db *pgxpool.Pool) *SecurityRepository {
	return &SecurityRepository{db: db}
}

// WithTx rebinds the store to a transaction.
func (r *SecurityRepository) WithTx(tx pgx.Tx) *SecurityRepository {
	return &SecurityRepository{db: tx}
}

func (r *SecurityRepository) MarkResolvedTx(ctx context.Context, tx pgx.Tx, id, resolvedBy string) (bool, error) {
	return r.WithTx(tx).MarkResolved(ctx, id, resolvedBy)
}

func (r *SecurityRepository) Insert(ctx context.Context, e *domain.SecurityEvent) error {
	meta, err := marshalState(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal security metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO security_events (id, subject_id, type, severity, description,
			origin_ip, metadata, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	`,
		e.ID,
		e.SubjectID,
		e.Type,
		string(e.Severity),
		e.Description,
		e.OriginIP,
		meta,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

// MarkResolved flips resolved exactly once. The condition lives in the
// statement itself, so a concurrent double resolve cannot overwrite
// resolved_at. Returns true when this call did the transition, false when
// the event was already resolved.
func (r *SecurityRepository) MarkResolved(ctx context.Context, id, resolvedBy string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE security_events
		SET resolved = TRUE, resolved_by = $2, resolved_at = NOW()
		WHERE id = $1 AND NOT resolved
	`, id, resolvedBy)
	if err != nil {
		return false, fmt.Errorf("resolve security event %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No row transitioned: either already resolved (a no-op) or unknown id.
	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM security_events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check security event %s: %w", id, err)
	}
	if !exists {
		return false, xerrors.ErrNotFound
	}
	return false, nil
}

// Unresolved returns open events at or above minSeverity, most severe first,
// oldest first within a severity.
func (r *SecurityRepository) Unresolved(ctx context.Context, minSeverity domain.Severity) ([]*domain.SecurityEvent, error) {
	rows, err := r.db.Query(ctx, securitySelect+`
		WHERE NOT resolved
		  AND CASE severity
		        WHEN 'critical' THEN 3
		        WHEN 'high' THEN 2
		        WHEN 'medium' THEN 1
		        ELSE 0
		      END >= $1
		ORDER BY CASE severity
		        WHEN 'critical' THEN 3
		        WHEN 'high' THEN 2
		        WHEN 'medium' THEN 1
		        ELSE 0
		      END DESC,
		      created_at ASC
	`, minSeverity.Rank())
	if err != nil {
		return nil, fmt.Errorf("query unresolved security events: %w", err)
	}
	defer rows.Close()

	return scanSecurityEvents(rows)
}

func (r *SecurityRepository) Get(ctx context.Context, id string) (*domain.SecurityEvent, error) {
	rows, err := r.db.Query(ctx, securitySelect+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query security event %s: %w", id, err)
	}
	defer rows.Close()

	events, err := scanSecurityEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, xerrors.ErrNotFound
	}
	return events[0], nil
}

// CountOpenBySeverity backs the dashboard banner.
func (r *SecurityRepository) CountOpenBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT severity, COUNT(*)
		FROM security_events
		WHERE NOT resolved
		GROUP BY severity
	`)
	if err != nil {
		return nil, fmt.Errorf("count open security events: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Severity]int)
	for rows.Next() {
		var (
			sev   string
			count int
		)
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[domain.Severity(sev)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}
	return counts, nil
}

const securitySelect = `
	SELECT id, subject_id, type, severity, description, origin_ip, metadata,
	       resolved, resolved_by, resolved_at, created_at
	FROM security_events
`

func scanSecurityEvents(rows pgx.Rows) ([]*domain.SecurityEvent, error) {
	var events []*domain.SecurityEvent
	for rows.Next() {
		var (
			e        domain.SecurityEvent
			severity string
			originIP *string
			meta     []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.SubjectID,
			&e.Type,
			&severity,
			&e.Description,
			&originIP,
			&meta,
			&e.Resolved,
			&e.ResolvedBy,
			&e.ResolvedAt,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan security event row: %w", err)
		}
		e.Severity = domain.Severity(severity)
		if originIP != nil {
			e.OriginIP = *originIP
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal security metadata: %w", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security event rows: %w", err)
	}
	return events, nil
}
