package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SecurityRepo interface {
	Insert(ctx context.Context, e *domain.SecurityEvent) error
	MarkResolved(ctx context.Context, id, resolvedBy string) (bool, error)
	MarkResolvedTx(ctx context.Context, tx pgx.Tx, id, resolvedBy string) (bool, error)
	Unresolved(ctx context.Context, minSeverity domain.Severity) ([]*domain.SecurityEvent, error)
	Get(ctx context.Context, id string) (*domain.SecurityEvent, error)
	CountOpenBySeverity(ctx context.Context) (map[domain.Severity]int, error)
}

// ResolveStatus distinguishes a fresh resolution from an idempotent repeat.
type ResolveStatus string

const (
	Resolved        ResolveStatus = "resolved"
	AlreadyResolved ResolveStatus = "already_resolved"
)

// SecurityFeed manages flagged security events and their resolution
// workflow.
type SecurityFeed struct {
	repo   SecurityRepo
	logger *zap.Logger
	now    func() time.Time
}

func NewSecurityFeed(repo SecurityRepo, logger *zap.Logger) *SecurityFeed {
	return &SecurityFeed{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Raise records a new event; it always starts unresolved. Severity defaults
// to medium when absent.
func (f *SecurityFeed) Raise(ctx context.Context, e *domain.SecurityEvent) (string, error) {
	if e.Type == "" {
		return "", xerrors.ErrTypeRequired
	}
	if e.Severity == "" {
		e.Severity = domain.SeverityMedium
	}
	if !e.Severity.Valid() {
		return "", fmt.Errorf("%w: severity %q", xerrors.ErrValidation, e.Severity)
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = f.now().UTC()
	}
	e.Resolved = false
	e.ResolvedBy = nil
	e.ResolvedAt = nil

	if err := f.repo.Insert(ctx, e); err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}

	if e.Severity.AtLeast(domain.SeverityHigh) {
		f.logger.Warn("security event raised",
			zap.String("id", e.ID),
			zap.String("type", e.Type),
			zap.String("severity", string(e.Severity)))
	}
	return e.ID, nil
}

// Resolve is idempotent: resolving an already-resolved event reports
// AlreadyResolved and changes nothing, including resolved_at.
func (f *SecurityFeed) Resolve(ctx context.Context, id, resolvedBy string) (ResolveStatus, error) {
	if resolvedBy == "" {
		return "", xerrors.ErrUserIDRequired
	}

	transitioned, err := f.repo.MarkResolved(ctx, id, resolvedBy)
	if err != nil {
		return "", err
	}
	if !transitioned {
		return AlreadyResolved, nil
	}
	return Resolved, nil
}

// resolveTx backs the audited admin-action path.
func (f *SecurityFeed) resolveTx(ctx context.Context, tx pgx.Tx, id, resolvedBy string) (ResolveStatus, error) {
	if resolvedBy == "" {
		return "", xerrors.ErrUserIDRequired
	}

	transitioned, err := f.repo.MarkResolvedTx(ctx, tx, id, resolvedBy)
	if err != nil {
		return "", err
	}
	if !transitioned {
		return AlreadyResolved, nil
	}
	return Resolved, nil
}

func (f *SecurityFeed) Unresolved(ctx context.Context, minSeverity domain.Severity) ([]*domain.SecurityEvent, error) {
	if minSeverity == "" {
		minSeverity = domain.SeverityLow
	}
	if !minSeverity.Valid() {
		return nil, fmt.Errorf("%w: severity %q", xerrors.ErrValidation, minSeverity)
	}
	return f.repo.Unresolved(ctx, minSeverity)
}

func (f *SecurityFeed) Get(ctx context.Context, id string) (*domain.SecurityEvent, error) {
	return f.repo.Get(ctx, id)
}

func (f *SecurityFeed) CountOpenBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	return f.repo.CountOpenBySeverity(ctx)
}
