package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/windowbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// fixedWindowLua counts hits on KEYS[1], starting the window expiry on the
// first hit. Returns the hit count.
const fixedWindowLua = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`

// RateLimiter implements domain.RateLimiter with one counter per key and
// window.
type RateLimiter struct {
	c      *Client
	script *redis.Script
}

// NewRateLimiter creates a RateLimiter backed by c.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{c: c, script: redis.NewScript(fixedWindowLua)}
}

// Allow counts one hit for key and reports whether it is within limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := rl.script.Run(ctx, rl.c.rdb, []string{rl.c.key("ratelimit", key)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return n <= int64(limit), nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
