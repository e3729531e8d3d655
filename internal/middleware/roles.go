package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"starkpay/internal/models"
)

type RoleStore interface {
	HasRole(ctx context.Context, userID string, role models.Role) (bool, error)
}

// RequireRole lets the request through when the user holds any of roles.
func RequireRole(roleStore RoleStore, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			for _, role := range roles {
				hasRole, err := roleStore.HasRole(r.Context(), userID, role)
				if err != nil {
					log.Error().Err(err).Str("user_id", userID).Msg("role lookup failed")
					writeError(w, http.StatusServiceUnavailable, "Unable to verify role")
					return
				}
				if hasRole {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "You are not allowed to perform this action")
		})
	}
}

// RequireStation rejects requests whose token is not bound to a station.
func RequireStation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := StationIDFromContext(r.Context()); !ok {
			writeError(w, http.StatusForbidden, "Station token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
