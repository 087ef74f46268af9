package domain

import "time"

// AdminSession is the bookkeeping row for one privileged login. The token is
// opaque and unique; validity is always derived from this row, never cached
// as a source of truth.
type AdminSession struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Token          string     `json:"token"`
	OriginIP       string     `json:"origin_ip,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	IssuedAt       time.Time  `json:"issued_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Revoked        bool       `json:"revoked"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedBy      *string    `json:"revoked_by,omitempty"`
	RevokeReason   *string    `json:"revoke_reason,omitempty"`
}

// Valid: not revoked and not past expiry.
func (s *AdminSession) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
