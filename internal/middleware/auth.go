package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"starkpay/internal/auth"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	stationIDKey contextKey = "station_id"
)

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// StationIDFromContext is only set for station device tokens.
func StationIDFromContext(ctx context.Context) (string, bool) {
	stationID, ok := ctx.Value(stationIDKey).(string)
	return stationID, ok && stationID != ""
}

// WithUser is used by tests and internal callers that authenticate out of band.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func WithStation(ctx context.Context, stationID string) context.Context {
	return context.WithValue(ctx, stationIDKey, stationID)
}

// Auth verifies the bearer token. Tokens are issued by the identity service;
// this service only checks them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}
			claims, err := auth.ParseToken(secret, strings.TrimSpace(parts[1]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			ctx := WithUser(r.Context(), claims.UserID)
			if claims.StationID != "" {
				ctx = WithStation(ctx, claims.StationID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"data":    nil,
	})
}
