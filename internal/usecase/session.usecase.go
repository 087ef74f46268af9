package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Excel18-coder/vconect-sub001/internal/domain"
	"github.com/Excel18-coder/vconect-sub001/pkg/cache"
	"github.com/Excel18-coder/vconect-sub001/pkg/id"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SessionRepo interface {
	Insert(ctx context.Context, s *domain.AdminSession) error
	GetByToken(ctx context.Context, token string) (*domain.AdminSession, error)
	Touch(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token, revokedBy, reason string) (bool, error)
	RevokeTx(ctx context.Context, tx pgx.Tx, token, revokedBy, reason string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID, revokedBy, reason string) ([]string, error)
	RevokeAllForUserTx(ctx context.Context, tx pgx.Tx, userID, revokedBy, reason string) ([]string, error)
	IsValid(ctx context.Context, token string) (bool, error)
	ListActiveForUser(ctx context.Context, userID string) ([]*domain.AdminSession, error)
}

const (
	sessionCacheNS  = "admincore:session_valid"
	sessionCacheTTL = 30 * time.Second
)

// SessionRegistry owns admin session issuance, heartbeat and revocation.
// The redis layer is a read-through cache over IsValid only; the database
// row stays authoritative and every revocation path invalidates the cache.
type SessionRegistry struct {
	repo   SessionRepo
	cache  *cache.Cache // nil disables caching
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionRegistry(repo SessionRepo, c *cache.Cache, logger *zap.Logger, defaultTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{
		repo:   repo,
		cache:  c,
		logger: logger,
		ttl:    defaultTTL,
		now:    time.Now,
	}
}

// Issue creates a session with expires_at = now + ttl and an opaque unique
// token. A non-positive ttl falls back to the configured default.
func (s *SessionRegistry) Issue(ctx context.Context, userID, originIP, userAgent string, ttl time.Duration) (*domain.AdminSession, error) {
	if userID == "" {
		return nil, xerrors.ErrUserIDRequired
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now().UTC()
	session := &domain.AdminSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		Token:          id.GenerateToken(),
		OriginIP:       originIP,
		UserAgent:      userAgent,
		IssuedAt:       now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}

	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrStorageUnavailable, err)
	}
	return session, nil
}

// Touch advances last_activity_at; an invalid session returns
// ErrSessionInvalid and the caller must re-authenticate.
func (s *SessionRegistry) Touch(ctx context.Context, token string) error {
	touched, err := s.repo.Touch(ctx, token)
	if err != nil {
		return err
	}
	if !touched {
		return xerrors.ErrSessionInvalid
	}
	return nil
}

// Revoke terminates one session. Idempotent: revoking a revoked session is
// a no-op.
func (s *SessionRegistry) Revoke(ctx context.Context, token, revokedBy, reason string) error {
	if _, err := s.repo.Revoke(ctx, token, revokedBy, reason); err != nil {
		return err
	}
	s.invalidate(ctx, token)
	return nil
}

// revokeTx and revokeAllTx back the audited admin-action path; cache
// invalidation for the affected tokens happens once the caller commits.
func (s *SessionRegistry) revokeTx(ctx context.Context, tx pgx.Tx, token, revokedBy, reason string) error {
	_, err := s.repo.RevokeTx(ctx, tx, token, revokedBy, reason)
	return err
}

func (s *SessionRegistry) revokeAllTx(ctx context.Context, tx pgx.Tx, userID, revokedBy, reason string) ([]string, error) {
	if userID == "" {
		return nil, xerrors.ErrUserIDRequired
	}
	return s.repo.RevokeAllForUserTx(ctx, tx, userID, revokedBy, reason)
}

// RevokeAll revokes every currently-valid session for the user in one
// atomic statement, forcing out all existing privileged sessions.
func (s *SessionRegistry) RevokeAll(ctx context.Context, userID, revokedBy, reason string) (int, error) {
	if userID == "" {
		return 0, xerrors.ErrUserIDRequired
	}

	tokens, err := s.repo.RevokeAllForUser(ctx, userID, revokedBy, reason)
	if err != nil {
		return 0, err
	}
	for _, token := range tokens {
		s.invalidate(ctx, token)
	}

	if len(tokens) > 0 {
		s.logger.Info("cascade session revoke",
			zap.String("user_id", userID),
			zap.String("revoked_by", revokedBy),
			zap.Int("sessions", len(tokens)))
	}
	return len(tokens), nil
}

// IsValid is the hot-path check consulted on every privileged request.
func (s *SessionRegistry) IsValid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	if s.cache != nil {
		if v, err := s.cache.Get(ctx, sessionCacheNS, token); err == nil {
			return v == "1", nil
		} else if !cache.IsMiss(err) {
			s.logger.Warn("session cache read failed", zap.Error(err))
		}
	}

	valid, err := s.repo.IsValid(ctx, token)
	if err != nil {
		return false, err
	}

	// Only positive results are cached, and only briefly: a "valid" entry can
	// outlive a natural expiry by at most the cache TTL. SetNX keeps a stale
	// positive read from overwriting a revocation marker written in between.
	if s.cache != nil && valid {
		_, _ = s.cache.SetNX(ctx, sessionCacheNS, token, "1", sessionCacheTTL)
	}
	return valid, nil
}

func (s *SessionRegistry) Get(ctx context.Context, token string) (*domain.AdminSession, error) {
	return s.repo.GetByToken(ctx, token)
}

func (s *SessionRegistry) ListActive(ctx context.Context, userID string) ([]*domain.AdminSession, error) {
	if userID == "" {
		return nil, xerrors.ErrUserIDRequired
	}
	return s.repo.ListActiveForUser(ctx, userID)
}

// invalidate overwrites the validity entry with a revocation marker rather
// than deleting it: a plain delete would let an in-flight IsValid re-cache
// the stale positive result it read before the revoke.
func (s *SessionRegistry) invalidate(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, sessionCacheNS, token, "0", sessionCacheTTL); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.Error(err))
	}
}
