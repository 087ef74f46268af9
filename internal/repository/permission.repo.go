package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PermissionRepository struct {
	db Querier
}

func NewPermissionRepository(db *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// WithTx rebinds the store to a transaction.
func (r *PermissionRepository) WithTx(tx pgx.Tx) *PermissionRepository {
	return &PermissionRepository{db: tx}
}

func (r *PermissionRepository) UpsertTx(ctx context.Context, tx pgx.Tx, g *domain.PermissionGrant) error {
	return r.WithTx(tx).Upsert(ctx, g)
}

func (r *PermissionRepository) DeleteTx(ctx context.Context, tx pgx.Tx, userID, permission string, resourceType, resourceID *string) error {
	return r.WithTx(tx).Delete(ctx, userID, permission, resourceType, resourceID)
}

// Upsert creates the grant or, when the scope tuple already exists, refreshes
// granted_at/granted_by/expires_at instead of duplicating the row.
func (r *PermissionRepository) Upsert(ctx context.Context, g *domain.PermissionGrant) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO permission_grants (user_id, permission, resource_type, resource_id, granted_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, permission, COALESCE(resource_type, ''), COALESCE(resource_id, ''))
		DO UPDATE SET
			granted_by = EXCLUDED.granted_by,
			granted_at = NOW(),
			expires_at = EXCLUDED.expires_at
		RETURNING id, granted_at
	`,
		g.UserID,
		g.Permission,
		g.ResourceType,
		g.ResourceID,
		g.GrantedBy,
		g.ExpiresAt,
	).Scan(&g.ID, &g.GrantedAt)
	if err != nil {
		return fmt.Errorf("upsert permission grant: %w", err)
	}
	return nil
}

// Delete removes the exact scope tuple. Absent rows are a no-op.
func (r *PermissionRepository) Delete(ctx context.Context, userID, permission string, resourceType, resourceID *string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM permission_grants
		WHERE user_id = $1 AND permission = $2
		  AND COALESCE(resource_type, '') = COALESCE($3, '')
		  AND COALESCE(resource_id, '') = COALESCE($4, '')
	`, userID, permission, resourceType, resourceID)
	if err != nil {
		return fmt.Errorf("delete permission grant: %w", err)
	}
	return nil
}

// FindForCheck returns the candidate grants for a capability check; the
// wildcard and expiry evaluation happens in the domain layer.
func (r *PermissionRepository) FindForCheck(ctx context.Context, userID, permission string) ([]*domain.PermissionGrant, error) {
	rows, err := r.db.Query(ctx, grantSelect+`
		WHERE user_id = $1 AND permission = $2
	`, userID, permission)
	if err != nil {
		return nil, fmt.Errorf("query grants for check: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

func (r *PermissionRepository) ListForUser(ctx context.Context, userID string) ([]*domain.PermissionGrant, error) {
	rows, err := r.db.Query(ctx, grantSelect+`
		WHERE user_id = $1
		ORDER BY permission, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query grants for user: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

// PruneExpired deletes long-expired rows. Purely housekeeping: checks already
// treat expired grants as absent.
func (r *PermissionRepository) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM permission_grants
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune expired grants: %w", err)
	}
	return tag.RowsAffected(), nil
}

const grantSelect = `
	SELECT id, user_id, permission, resource_type, resource_id, granted_by, granted_at, expires_at
	FROM permission_grants
`

func scanGrants(rows pgx.Rows) ([]*domain.PermissionGrant, error) {
	var grants []*domain.PermissionGrant
	for rows.Next() {
		var g domain.PermissionGrant
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.Permission,
			&g.ResourceType,
			&g.ResourceID,
			&g.GrantedBy,
			&g.GrantedAt,
			&g.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan grant row: %w", err)
		}
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grant rows: %w", err)
	}
	return grants, nil
}
