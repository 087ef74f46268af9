package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/id"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"go.uber.org/zap"
)

type EventRepo interface {
	Insert(ctx context.Context, e *domain.Event) error
	ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.Event, error)
	CountByTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error)
}

// EventStore ingests activity events. Writes are at-least-once: callers
// retry on timeout and duplicates are tolerated downstream, where the
// aggregator recomputes from scratch anyway.
type EventStore struct {
	repo   EventRepo
	sf     *id.Snowflake
	logger *zap.Logger
	now    func() time.Time
}

func NewEventStore(repo EventRepo, sf *id.Snowflake, logger *zap.Logger) *EventStore {
	return &EventStore{
		repo:   repo,
		sf:     sf,
		logger: logger,
		now:    time.Now,
	}
}

// Record validates and persists one event, returning its ID. Storage
// failures surface as ErrStorageUnavailable; callers on the user-facing
// path should use RecordAsync instead and never block on this.
func (s *EventStore) Record(ctx context.Context, e *domain.Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID = s.sf.Generate()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now().UTC()
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		// A unique violation means a retried write already landed; with
		// at-least-once delivery that is success, not an error.
		var repoErr *xerrors.RepoError
		if errors.As(err, &repoErr) && repoErr.Code == xerrors.PGUniqueViolation {
			return e.ID, nil
		}
		return "", fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}
	return e.ID, nil
}

// RecordAsync is the fire-and-forget ingestion path: failures are logged
// and swallowed so the triggering user action never fails on telemetry.
func (s *EventStore) RecordAsync(e *domain.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := s.Record(ctx, e); err != nil {
			s.logger.Warn("event ingestion dropped",
				zap.String("type", e.Type),
				zap.String("category", e.Category),
				zap.Error(err))
		}
	}()
}

func (s *EventStore) ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]*domain.Event, error) {
	if actorID == "" {
		return nil, xerrors.ErrActorRequired
	}
	return s.repo.ListByActor(ctx, actorID, from, to)
}

// CountByTypeAndWindow counts events of a type within the trailing window.
func (s *EventStore) CountByTypeAndWindow(ctx context.Context, eventType string, window time.Duration) (int64, error) {
	if eventType == "" {
		return 0, xerrors.ErrTypeRequired
	}
	return s.repo.CountByTypeSince(ctx, eventType, s.now().Add(-window))
}
