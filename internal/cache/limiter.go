package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterScript atomically increments a rate counter and, only on the
// increment that creates it, sets its expiry. Later increments within
// the window never touch the TTL: the window is fixed from the first
// call, not sliding per-call. Read-then-write would let concurrent
// requests slip under the limit; the script runs as one atomic unit.
var counterScript = redis.NewScript(`
    local n = redis.call('INCR', KEYS[1])
    if n == 1 then
        redis.call('EXPIRE', KEYS[1], ARGV[1])
    end
    return n
`)

// Limiter enforces a maximum call count per identity per operation
// within a fixed window, using atomic counters in Redis.
type Limiter struct {
	rdb    *redis.Client
	prefix string
}

// NewLimiter wraps a Redis client, which may be nil when the backend
// was unreachable at startup; a nil-backed limiter always allows.
func NewLimiter(rdb *redis.Client, prefix string) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix}
}

// Available reports whether a backend client is configured.
func (l *Limiter) Available() bool { return l != nil && l.rdb != nil }

// Allow increments the counter for (identity, op) and reports whether
// the call is within maxCalls for the window. The increment counts
// against the window even for the call that trips the limit. Any
// backend failure allows the call (fail-open): rate limiting being
// unavailable must not make the operation unavailable.
func (l *Limiter) Allow(ctx context.Context, identity uint64, op string, maxCalls int, window time.Duration) bool {
	if !l.Available() {
		return true
	}
	key := fmt.Sprintf("%s:%d:%s", l.prefix, identity, op)

	rctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	n, err := counterScript.Run(rctx, l.rdb, []string{key}, int64(window/time.Second)).Int64()
	if err != nil {
		log.Printf("ratelimit: counter %s failed: %v", key, err)
		return true
	}
	return n <= int64(maxCalls)
}
