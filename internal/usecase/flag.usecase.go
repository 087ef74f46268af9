package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/cache"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type FlagRepo interface {
	Upsert(ctx context.Context, f *domain.FeatureFlag) error
	UpsertTx(ctx context.Context, tx pgx.Tx, f *domain.FeatureFlag) error
	Get(ctx context.Context, name string) (*domain.FeatureFlag, error)
	List(ctx context.Context) ([]*domain.FeatureFlag, error)
	Delete(ctx context.Context, name string) error
	DeleteTx(ctx context.Context, tx pgx.Tx, name string) error
}

const (
	flagCacheNS  = "admincore:flag"
	flagCacheTTL = time.Minute
)

// FeatureGate evaluates deterministic sticky percentage rollouts. Flag state
// is storage-backed; the redis layer is a read-through cache invalidated on
// every flag change.
type FeatureGate struct {
	repo   FlagRepo
	cache  *cache.Cache // nil disables caching
	logger *zap.Logger
}

func NewFeatureGate(repo FlagRepo, c *cache.Cache, logger *zap.Logger) *FeatureGate {
	return &FeatureGate{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// Enabled evaluates the flag for a user: kill switch, then allow-list, then
// the sticky hash bucket against the rollout percentage. Unknown flags are
// disabled, not an error.
func (g *FeatureGate) Enabled(ctx context.Context, flagName, userID string) (bool, error) {
	flag, err := g.getFlag(ctx, flagName)
	if errors.Is(err, xerrors.ErrFlagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return flag.EnabledFor(userID), nil
}

// checkAndNormalize validates flag input and replaces a nil target list with
// an empty one; the target_users column is NOT NULL.
func checkAndNormalize(f *domain.FeatureFlag) error {
	if f.Name == "" {
		return xerrors.ErrFlagNameRequired
	}
	if f.RolloutPercentage < 0 || f.RolloutPercentage > 100 {
		return xerrors.ErrInvalidRollout
	}
	if f.TargetUsers == nil {
		f.TargetUsers = []string{}
	}
	return nil
}

// Upsert creates or updates a flag and drops its cache entry so evaluation
// picks up the new state on the next request.
func (g *FeatureGate) Upsert(ctx context.Context, f *domain.FeatureFlag) error {
	if err := checkAndNormalize(f); err != nil {
		return err
	}

	if err := g.repo.Upsert(ctx, f); err != nil {
		return err
	}
	g.invalidate(ctx, f.Name)
	return nil
}

// UpsertTx is Upsert bound to a caller's transaction. It does NOT touch the
// cache: the caller invalidates after commit, otherwise a concurrent read
// could re-cache the pre-commit row.
func (g *FeatureGate) UpsertTx(ctx context.Context, tx pgx.Tx, f *domain.FeatureFlag) error {
	if err := checkAndNormalize(f); err != nil {
		return err
	}
	return g.repo.UpsertTx(ctx, tx, f)
}

// DeleteTx is Delete bound to a caller's transaction; like UpsertTx, cache
// invalidation is the caller's job, after commit.
func (g *FeatureGate) DeleteTx(ctx context.Context, tx pgx.Tx, name string) error {
	return g.repo.DeleteTx(ctx, tx, name)
}

func (g *FeatureGate) Get(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	return g.repo.Get(ctx, name)
}

func (g *FeatureGate) List(ctx context.Context) ([]*domain.FeatureFlag, error) {
	return g.repo.List(ctx)
}

func (g *FeatureGate) Delete(ctx context.Context, name string) error {
	if err := g.repo.Delete(ctx, name); err != nil {
		return err
	}
	g.invalidate(ctx, name)
	return nil
}

func (g *FeatureGate) getFlag(ctx context.Context, name string) (*domain.FeatureFlag, error) {
	if name == "" {
		return nil, xerrors.ErrFlagNameRequired
	}

	if g.cache != nil {
		if raw, err := g.cache.Get(ctx, flagCacheNS, name); err == nil {
			var f domain.FeatureFlag
			if jsonErr := json.Unmarshal([]byte(raw), &f); jsonErr == nil {
				return &f, nil
			}
		} else if !cache.IsMiss(err) {
			g.logger.Warn("flag cache read failed", zap.Error(err))
		}
	}

	flag, err := g.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if raw, err := json.Marshal(flag); err == nil {
			_ = g.cache.Set(ctx, flagCacheNS, name, raw, flagCacheTTL)
		}
	}
	return flag, nil
}

func (g *FeatureGate) invalidate(ctx context.Context, name string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, flagCacheNS, name); err != nil {
		g.logger.Warn("flag cache invalidation failed",
			zap.String("flag", name), zap.Error(err))
	}
}
