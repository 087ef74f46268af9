package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Excel18-coder/vconect-sub001/internal/usecase"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
	"github.com/Excel18-coder/vconect-sub001/pkg/xerrors"

	"go.uber.org/zap"
)

type contextKey string

const (
	ContextAdminID contextKey = "adminID"
	ContextToken   contextKey = "token"
)

func GetAdminID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextAdminID).(string)
	return val, ok
}

func GetToken(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextToken).(string)
	return val, ok
}

// AdminAuth guards privileged routes: the bearer token must map to a valid
// admin session, and each authenticated request advances the session
// heartbeat. Validity is always decided by the session row, so a cascade
// revoke takes effect on the very next request.
type AdminAuth struct {
	sessions *usecase.SessionRegistry
	logger   *zap.Logger
}

func NewAdminAuth(sessions *usecase.SessionRegistry, logger *zap.Logger) *AdminAuth {
	return &AdminAuth{sessions: sessions, logger: logger}
}

func (a *AdminAuth) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				response.Error(w, http.StatusUnauthorized, xerrors.ErrUnauthorized.Error())
				return
			}

			ctx := r.Context()
			if err := a.sessions.Touch(ctx, token); err != nil {
				if errors.Is(err, xerrors.ErrSessionInvalid) {
					response.Error(w, http.StatusUnauthorized, "session expired or revoked")
					return
				}
				a.logger.Error("session check failed", zap.Error(err))
				response.Error(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}

			session, err := a.sessions.Get(ctx, token)
			if err != nil {
				a.logger.Error("session lookup failed", zap.Error(err))
				response.Error(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}

			ctx = context.WithValue(ctx, ContextAdminID, session.UserID)
			ctx = context.WithValue(ctx, ContextToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Admin-Token")
}
