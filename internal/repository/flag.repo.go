package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlagRepository struct {
	db Querier
}

func NewFlagRepository(db *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{db: db}
}

// WithTx rebinds the store to a transaction.
func (r *FlagRepository) WithTx(tx pgx.Tx) *FlagRepository {
	return &FlagRepository{db: tx}
}

func (r *FlagRepository) UpsertTx(ctx context.Context, tx pgx.Tx, f *domain.FeatureFlag) error {
	return r.WithTx(tx).Upsert(ctx, f)
}

func (r *FlagRepository) DeleteTx(ctx context.Context, tx pgx.Tx, name string) error {
	return r.WithTx(tx).Delete(ctx, name)
}

func (r *FlagRepository) Upsert(ctx context.Context, f *domain.FeatureFlag) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO feature_flags (name, enabled, rollout_percentage, target_users, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			rollout_percentage = EXCLUDED.rollout_percentage,
			target_users = EXCLUDED.target_users,
			updated_at = NOW()
		RETURNING updated_at
	`,
		f.Name,
		f.Enabled,
		f.RolloutPercentage,
		f.TargetUsers,
		f.CreatedBy,
	).Scan(&f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert feature flag %s: %w", f.Name, err)
	}
	return nil
}

func (r *FlagRepository) Get(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	var f domain.FeatureFlag
	err := r.db.QueryRow(ctx, `
		SELECT name, enabled, rollout_percentage, target_users, created_by, updated_at
		FROM feature_flags
		WHERE name = $1
	`, name).Scan(
		&f.Name,
		&f.Enabled,
		&f.RolloutPercentage,
		&f.TargetUsers,
		&f.CreatedBy,
		&f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrFlagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query feature flag %s: %w", name, err)
	}
	return &f, nil
}

func (r *FlagRepository) List(ctx context.Context) ([]*domain.FeatureFlag, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, enabled, rollout_percentage, target_users, created_by, updated_at
		FROM feature_flags
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query feature flags: %w", err)
	}
	defer rows.Close()

	var flags []*domain.FeatureFlag
	for rows.Next() {
		var f domain.FeatureFlag
		if err := rows.Scan(
			&f.Name,
			&f.Enabled,
			&f.RolloutPercentage,
			&f.TargetUsers,
			&f.CreatedBy,
			&f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feature flag row: %w", err)
		}
		flags = append(flags, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature flag rows: %w", err)
	}
	return flags, nil
}

func (r *FlagRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM feature_flags WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete feature flag %s: %w", name, err)
	}
	return nil
}
