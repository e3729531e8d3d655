package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit counts requests per authenticated user. A limiter outage lets the
// request through.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := UserIDFromContext(r.Context())
			if !ok {
				key = r.RemoteAddr
			}
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			}
			if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
