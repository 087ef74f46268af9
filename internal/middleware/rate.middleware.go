package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Excel18-coder/vconect-sub001/pkg/cache"
	"github.com/Excel18-coder/vconect-sub001/pkg/response"
)

// RateLimit caps requests per client per window, keyed by admin ID when
// authenticated and by IP otherwise. Fails open when redis is unavailable.
func RateLimit(c *cache.Cache, limit int, window time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var clientID string
			if adminID, ok := GetAdminID(ctx); ok && adminID != "" {
				clientID = "uid:" + adminID
			} else {
				ip := r.Header.Get("X-Forwarded-For")
				if ip == "" {
					ip = r.RemoteAddr
				}
				clientID = "ip:" + strings.Split(ip, ",")[0]
			}

			count, err := c.IncrWithExpire(ctx, keyPrefix, clientID, window)
			if err != nil {
				// Fail open: don't block traffic if redis is down.
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				retryAfter := int(window.Seconds())
				if ttl, err := c.GetTTL(ctx, keyPrefix, clientID); err == nil && ttl > 0 {
					retryAfter = int((ttl + time.Second - 1) / time.Second)
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
