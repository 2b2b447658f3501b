package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// backendTimeout bounds each Redis round trip. A timeout is treated as
// backend-unavailable for that call only, never as process-wide state.
const backendTimeout = 2 * time.Second

// Store caches serialized operation results in Redis. A Store built
// over a nil client is permanently unavailable and every call falls
// through to the computed value.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps a Redis client, which may be nil when the backend was
// unreachable at startup.
func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// Available reports whether a backend client is configured. Liveness is
// a runtime property: an available store can still fail a round trip,
// and every such failure is absorbed.
func (s *Store) Available() bool { return s != nil && s.rdb != nil }

// GetOrCompute returns the JSON payload cached under key, or runs
// compute, caches its JSON encoding with the given TTL and returns it.
// A missing entry is only ever a cache miss, never an error. Backend
// read failures are treated as misses; write failures are logged and
// swallowed, since a failed cache write only means a slower next read.
func (s *Store) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func() (any, error)) ([]byte, error) {
	if !s.Available() {
		return computeJSON(compute)
	}

	rctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	if b, err := s.rdb.Get(rctx, key).Bytes(); err == nil {
		return b, nil
	} else if err != redis.Nil {
		log.Printf("cache: get %s failed: %v", key, err)
	}

	b, err := computeJSON(compute)
	if err != nil {
		return nil, err
	}
	// Write back with a fresh timeout; the request context may be near
	// its deadline and the write is best effort anyway.
	wctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := s.rdb.SetEx(wctx, key, b, ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
	return b, nil
}

// Invalidate deletes every key matching the glob pattern. It is a no-op
// when the backend is unavailable or nothing matches; errors are logged
// and swallowed so stale-entry cleanup never fails a mutation.
func (s *Store) Invalidate(ctx context.Context, pattern string) {
	if !s.Available() {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	iter := s.rdb.Scan(rctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(rctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: scan %s failed: %v", pattern, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(rctx, keys...).Err(); err != nil {
		log.Printf("cache: delete %d keys for %s failed: %v", len(keys), pattern, err)
	}
}

func computeJSON(compute func() (any, error)) ([]byte, error) {
	v, err := compute()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
