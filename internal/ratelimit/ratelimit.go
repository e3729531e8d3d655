// Package ratelimit is a fixed-window request counter kept in Redis so every
// API instance shares the same budget.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// The first hit in a window sets the expiry; later hits only count.
var incrWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type Limiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow counts one hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := incrWindow.Run(ctx, l.client, []string{"ratelimit:" + l.prefix + ":" + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return true, err
	}
	return count <= l.limit, nil
}
