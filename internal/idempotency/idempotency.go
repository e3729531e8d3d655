// Package idempotency replays the first response recorded for an
// Idempotency-Key so retried money movements are not applied twice.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	HeaderKey = "Idempotency-Key"
	HeaderHit = "X-Idempotency-Hit"

	keyPrefix = "idempotency:"
)

type CachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

type Repository interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Save(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error
}

type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Get returns nil, nil on a miss.
func (r *RedisRepository) Get(ctx context.Context, key string) (*CachedResponse, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	var resp CachedResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, nil
}

func (r *RedisRepository) Save(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware scopes keys with scope(r), normally the authenticated user, so
// two users sending the same key never share a response. Redis failures let
// the request through. 5xx responses are not recorded so callers can retry.
func Middleware(repo Repository, ttl time.Duration, scope func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if scope != nil {
				key = scope(r) + ":" + key
			}
			ctx := r.Context()

			cached, err := repo.Get(ctx, key)
			if err != nil {
				log.Error().Err(err).Msg("idempotency lookup failed")
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				log.Info().Str("key", key).Msg("idempotency hit")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(HeaderHit, "true")
				w.WriteHeader(cached.StatusCode)
				if _, err := w.Write(cached.Body); err != nil {
					log.Error().Err(err).Msg("failed to write cached response")
				}
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode < http.StatusInternalServerError {
				if err := repo.Save(ctx, key, CachedResponse{StatusCode: recorder.statusCode, Body: recorder.body.Bytes()}, ttl); err != nil {
					log.Error().Err(err).Msg("failed to save idempotency key")
				}
			}
		})
	}
}
