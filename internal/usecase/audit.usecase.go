package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/id"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type AuditRepo interface {
	Insert(ctx context.Context, e *domain.AuditEntry) error
	InsertTx(ctx context.Context, tx pgx.Tx, e *domain.AuditEntry) error
	Tail(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
	ByTarget(ctx context.Context, targetType domain.TargetKind, targetID string) ([]*domain.AuditEntry, error)
	ByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.AuditEntry, error)
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AuditLog is the append-only record of mutating admin actions. Unlike event
// ingestion this write is not best-effort: when the audit insert fails the
// enclosing action must fail with it.
type AuditLog struct {
	repo   AuditRepo
	db     TxBeginner
	sf     *id.Snowflake
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditLog(repo AuditRepo, db TxBeginner, sf *id.Snowflake, logger *zap.Logger) *AuditLog {
	return &AuditLog{
		repo:   repo,
		db:     db,
		sf:     sf,
		logger: logger,
		now:    time.Now,
	}
}

// Append validates and persists one audit entry. Destructive actions
// (suspend, ban, delete, role_change) are rejected without a reason before
// anything touches storage.
func (a *AuditLog) Append(ctx context.Context, e *domain.AuditEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	a.stamp(e)

	if err := a.repo.Insert(ctx, e); err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}
	return e.ID, nil
}

// WithAudit runs the admin mutation and its audit entry in one transaction:
// both commit or neither does. The entry is validated before the transaction
// opens, so a missing reason never costs a rollback.
func (a *AuditLog) WithAudit(ctx context.Context, e *domain.AuditEntry, fn func(tx pgx.Tx) error) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	a.stamp(e)

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return "", err
	}
	if err := a.repo.InsertTx(ctx, tx, e); err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}

	a.logger.Info("admin action audited",
		zap.String("audit_id", e.ID),
		zap.String("actor_id", e.ActorID),
		zap.String("action", e.Action),
		zap.String("target", string(e.Target.Kind)))

	return e.ID, nil
}

func (a *AuditLog) stamp(e *domain.AuditEntry) {
	if e.ID == "" {
		e.ID = a.sf.Generate()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.now().UTC()
	}
}

func (a *AuditLog) Tail(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return a.repo.Tail(ctx, limit)
}

func (a *AuditLog) ByTarget(ctx context.Context, target domain.Target) ([]*domain.AuditEntry, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return a.repo.ByTarget(ctx, target.Kind, target.ID)
}

func (a *AuditLog) ByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.AuditEntry, error) {
	if actorID == "" {
		return nil, xerrors.ErrActorRequired
	}
	return a.repo.ByActor(ctx, actorID, from, to)
}
