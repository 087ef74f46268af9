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

// SessionRepository owns admin_sessions. Revocation and expiry are both
// conditions evaluated against the row at read time; nothing here trusts a
// cached validity bit.
type SessionRepository struct {
	db Querier
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx rebinds the store to a transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) RevokeTx(ctx context.Context, tx pgx.Tx, token, revokedBy, reason string) (bool, error) {
	return r.WithTx(tx).Revoke(ctx, token, revokedBy, reason)
}

func (r *SessionRepository) RevokeAllForUserTx(ctx context.Context, tx pgx.Tx, userID, revokedBy, reason string) ([]string, error) {
	return r.WithTx(tx).RevokeAllForUser(ctx, userID, revokedBy, reason)
}

func (r *SessionRepository) Insert(ctx context.Context, s *domain.AdminSession) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_sessions (id, user_id, token, origin_ip, user_agent,
			issued_at, last_activity_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		s.ID,
		s.UserID,
		s.Token,
		s.OriginIP,
		s.UserAgent,
		s.IssuedAt,
		s.LastActivityAt,
		s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.AdminSession, error) {
	var s domain.AdminSession
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token, origin_ip, user_agent, issued_at,
		       last_activity_at, expires_at, revoked, revoked_at, revoked_by, revoke_reason
		FROM admin_sessions
		WHERE token = $1
	`, token).Scan(
		&s.ID,
		&s.UserID,
		&s.Token,
		&s.OriginIP,
		&s.UserAgent,
		&s.IssuedAt,
		&s.LastActivityAt,
		&s.ExpiresAt,
		&s.Revoked,
		&s.RevokedAt,
		&s.RevokedBy,
		&s.RevokeReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session by token: %w", err)
	}
	return &s, nil
}

// Touch advances last_activity_at only while the session is still valid.
// The validity condition is inside the UPDATE, so a touch racing a revoke
// either lands before it or affects zero rows.
func (r *SessionRepository) Touch(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE admin_sessions
		SET last_activity_at = NOW()
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()
	`, token)
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Revoke flips revoked exactly once; repeat calls affect zero rows.
func (r *SessionRepository) Revoke(ctx context.Context, token, revokedBy, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE admin_sessions
		SET revoked = TRUE, revoked_at = NOW(), revoked_by = $2, revoke_reason = $3
		WHERE token = $1 AND NOT revoked
	`, token, revokedBy, reason)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every live session for the user in one statement
// and returns the affected tokens so callers can invalidate caches.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID, revokedBy, reason string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE admin_sessions
		SET revoked = TRUE, revoked_at = NOW(), revoked_by = $2, revoke_reason = $3
		WHERE user_id = $1 AND NOT revoked
		RETURNING token
	`, userID, revokedBy, reason)
	if err != nil {
		return nil, fmt.Errorf("revoke all sessions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan revoked token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revoked tokens: %w", err)
	}
	return tokens, nil
}

// IsValid is the hot-path check: one indexed lookup on the unique token.
func (r *SessionRepository) IsValid(ctx context.Context, token string) (bool, error) {
	var valid bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM admin_sessions
			WHERE token = $1 AND NOT revoked AND expires_at > NOW()
		)
	`, token).Scan(&valid)
	if err != nil {
		return false, fmt.Errorf("check session validity: %w", err)
	}
	return valid, nil
}

func (r *SessionRepository) ListActiveForUser(ctx context.Context, userID string) ([]*domain.AdminSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, token, origin_ip, user_agent, issued_at,
		       last_activity_at, expires_at, revoked, revoked_at, revoked_by, revoke_reason
		FROM admin_sessions
		WHERE user_id = $1 AND NOT revoked AND expires_at > NOW()
		ORDER BY issued_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.AdminSession
	for rows.Next() {
		var s domain.AdminSession
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Token,
			&s.OriginIP,
			&s.UserAgent,
			&s.IssuedAt,
			&s.LastActivityAt,
			&s.ExpiresAt,
			&s.Revoked,
			&s.RevokedAt,
			&s.RevokedBy,
			&s.RevokeReason,
		); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}
