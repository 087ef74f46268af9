package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
)

type PermissionRepo interface {
	Upsert(ctx context.Context, g *domain.PermissionGrant) error
	UpsertTx(ctx context.Context, tx pgx.Tx, g *domain.PermissionGrant) error
	Delete(ctx context.Context, userID, permission string, resourceType, resourceID *string) error
	DeleteTx(ctx context.Context, tx pgx.Tx, userID, permission string, resourceType, resourceID *string) error
	FindForCheck(ctx context.Context, userID, permission string) ([]*domain.PermissionGrant, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.PermissionGrant, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

// PermissionRegistry evaluates time-bounded, resource-scoped capability
// grants. Expiry is lazy: an expired grant behaves as if revoked without any
// background sweep.
type PermissionRegistry struct {
	repo PermissionRepo
	now  func() time.Time
}

func NewPermissionRegistry(repo PermissionRepo) *PermissionRegistry {
	return &PermissionRegistry{
		repo: repo,
		now:  time.Now,
	}
}

// Grant upserts on (user, permission, resource_type, resource_id):
// re-granting refreshes granted_at/expires_at rather than duplicating.
func (p *PermissionRegistry) Grant(ctx context.Context, g *domain.PermissionGrant) error {
	if g.UserID == "" {
		return xerrors.ErrUserIDRequired
	}
	if g.Permission == "" {
		return fmt.Errorf("%w: permission name required", xerrors.ErrValidation)
	}
	if g.GrantedBy == "" {
		return xerrors.ErrActorRequired
	}
	return p.repo.Upsert(ctx, g)
}

// GrantTx is Grant bound to a caller's transaction, used by the audited
// admin-action path.
func (p *PermissionRegistry) GrantTx(ctx context.Context, tx pgx.Tx, g *domain.PermissionGrant) error {
	if g.UserID == "" {
		return xerrors.ErrUserIDRequired
	}
	if g.Permission == "" {
		return fmt.Errorf("%w: permission name required", xerrors.ErrValidation)
	}
	if g.GrantedBy == "" {
		return xerrors.ErrActorRequired
	}
	return p.repo.UpsertTx(ctx, tx, g)
}

// RevokeTx is Revoke bound to a caller's transaction.
func (p *PermissionRegistry) RevokeTx(ctx context.Context, tx pgx.Tx, userID, permission string, resourceType, resourceID *string) error {
	if userID == "" {
		return xerrors.ErrUserIDRequired
	}
	return p.repo.DeleteTx(ctx, tx, userID, permission, resourceType, resourceID)
}

// Revoke deletes the matching grant; absent grants are a no-op.
func (p *PermissionRegistry) Revoke(ctx context.Context, userID, permission string, resourceType, resourceID *string) error {
	if userID == "" {
		return xerrors.ErrUserIDRequired
	}
	return p.repo.Delete(ctx, userID, permission, resourceType, resourceID)
}

// Check reports whether an active grant covers the request. Wildcard grants
// (nil resource_type/resource_id) and exact grants are both honored.
func (p *PermissionRegistry) Check(ctx context.Context, userID, permission string, resourceType, resourceID *string) (bool, error) {
	if userID == "" || permission == "" {
		return false, nil
	}

	grants, err := p.repo.FindForCheck(ctx, userID, permission)
	if err != nil {
		return false, err
	}

	now := p.now()
	for _, g := range grants {
		if g.Active(now) && g.Matches(permission, resourceType, resourceID) {
			return true, nil
		}
	}
	return false, nil
}

func (p *PermissionRegistry) ListForUser(ctx context.Context, userID string) ([]*domain.PermissionGrant, error) {
	if userID == "" {
		return nil, xerrors.ErrUserIDRequired
	}
	return p.repo.ListForUser(ctx, userID)
}

// PruneExpired removes rows whose expiry passed before olderThan. Optional
// housekeeping; correctness never depends on it running.
func (p *PermissionRegistry) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	return p.repo.PruneExpired(ctx, olderThan)
}
