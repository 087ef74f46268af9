package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// RepoError carries the postgres error class out of a repository so callers
// can tell a constraint violation from an outage. Ref holds the offending
// row's identifier when the repository knows it.
type RepoError struct {
	Entity string
	Code   string
	Msg    string
	Ref    string
}

func (e *RepoError) Error() string {
	return e.Entity + ": " + e.Msg
}

// PGUniqueViolation is the postgres error code for unique_violation.
const PGUniqueViolation = "23505"

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
)

// Validation: the request is malformed or missing a required field.
// Rejected synchronously; nothing is persisted.
var (
	ErrValidation        = errors.New("validation failed")
	ErrTypeRequired      = errors.New("event type required")
	ErrCategoryRequired  = errors.New("event category required")
	ErrActorRequired     = errors.New("actor ID required")
	ErrActionRequired    = errors.New("action required")
	ErrOriginIPRequired  = errors.New("origin IP required")
	ErrReasonRequired    = errors.New("reason required for destructive actions")
	ErrTargetRequired    = errors.New("target type required")
	ErrUnknownTargetKind = errors.New("unknown target kind")
	ErrUserIDRequired    = errors.New("user ID required")
)

// IsValidation reports whether err belongs to the validation class:
// rejected synchronously, nothing persisted.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrInvalidRequest, ErrTypeRequired, ErrCategoryRequired,
		ErrActorRequired, ErrActionRequired, ErrOriginIPRequired,
		ErrReasonRequired, ErrTargetRequired, ErrUnknownTargetKind,
		ErrUserIDRequired, ErrInvalidRollout, ErrFlagNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Storage
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Sessions
var (
	ErrSessionInvalid = errors.New("session invalid")
)

// Feature flags
var (
	ErrFlagNotFound     = errors.New("feature flag not found")
	ErrInvalidRollout   = errors.New("rollout percentage must be between 0 and 100")
	ErrFlagNameRequired = errors.New("flag name required")
)

// Metrics
var (
	ErrUnknownMetric = errors.New("unknown metric")
)
