package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists the admin audit trail. Append-only: no UPDATE or
// DELETE statement exists here.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	return insertAudit(ctx, r.db, e)
}

// InsertTx writes the entry inside the caller's transaction so the audit
// record commits together with the admin mutation it describes, or not at all.
func (r *AuditRepository) InsertTx(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error {
	return insertAudit(ctx, tx, e)
}

func insertAudit(ctx context.Context, db Querier, e *domain.AuditEntry) error {
	before, err := marshalState(e.BeforeState)
	if err != nil {
		return fmt.Errorf("marshal before_state: %w", err)
	}
	after, err := marshalState(e.AfterState)
	if err != nil {
		return fmt.Errorf("marshal after_state: %w", err)
	}
	meta, err := marshalState(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	var targetID *string
	if e.Target.ID != "" {
		targetID = &e.Target.ID
	}

	_, err = db.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, target_type, target_id,
			before_state, after_state, reason, origin_ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
	`,
		e.ID,
		e.ActorID,
		e.Action,
		string(e.Target.Kind),
		targetID,
		before,
		after,
		e.Reason,
		e.OriginIP,
		meta,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Tail(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, auditSelect+`
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit tail: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

func (r *AuditRepository) ByTarget(ctx context.Context, targetType domain.TargetKind, targetID string) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, auditSelect+`
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC, id DESC
	`, string(targetType), targetID)
	if err != nil {
		return nil, fmt.Errorf("query audit by target: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

func (r *AuditRepository) ByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, auditSelect+`
		WHERE actor_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
	`, actorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query audit by actor: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

const auditSelect = `
	SELECT id, actor_id, action, target_type, target_id,
	       before_state, after_state, reason, origin_ip, metadata, created_at
	FROM audit_log
`

func scanAuditEntries(rows pgx.Rows) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			e           domain.AuditEntry
			targetType  string
			targetID    *string
			before      []byte
			after       []byte
			meta        []byte
			reason      *string
		)
		if err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.Action,
			&targetType,
			&targetID,
			&before,
			&after,
			&reason,
			&e.OriginIP,
			&meta,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		e.Target.Kind = domain.TargetKind(targetType)
		if targetID != nil {
			e.Target.ID = *targetID
		}
		if reason != nil {
			e.Reason = *reason
		}
		if err := unmarshalState(before, &e.BeforeState); err != nil {
			return nil, err
		}
		if err := unmarshalState(after, &e.AfterState); err != nil {
			return nil, err
		}
		if err := unmarshalState(meta, &e.Metadata); err != nil {
			return nil, err
		}

		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}

func marshalState(state map[string]interface{}) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func unmarshalState(raw []byte, dst *map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal audit state: %w", err)
	}
	return nil
}
