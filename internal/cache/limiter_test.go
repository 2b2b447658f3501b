package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLimiter(rdb, "rate_limit"), mr
}

func TestAllowUpToMax(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, 1, "create_todo", 3, time.Hour), "call %d", i+1)
	}
	assert.False(t, l.Allow(ctx, 1, "create_todo", 3, time.Hour), "call past the limit")
	assert.False(t, l.Allow(ctx, 1, "create_todo", 3, time.Hour), "stays exceeded for the window")
}

func TestAllowIsolatedPerIdentityAndOp(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, 1, "create_todo", 1, time.Hour))
	assert.False(t, l.Allow(ctx, 1, "create_todo", 1, time.Hour))

	// A different user and a different operation each have their own counter.
	assert.True(t, l.Allow(ctx, 2, "create_todo", 1, time.Hour))
	assert.True(t, l.Allow(ctx, 1, "list_todos", 1, time.Hour))
}

func TestAllowWindowResets(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, 1, "create_todo", 1, time.Hour))
	assert.False(t, l.Allow(ctx, 1, "create_todo", 1, time.Hour))

	mr.FastForward(time.Hour + time.Second)

	assert.True(t, l.Allow(ctx, 1, "create_todo", 1, time.Hour), "counter expires with the window")
}

func TestAllowWindowFixedFromFirstCall(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, 1, "create_todo", 2, time.Hour))
	mr.FastForward(30 * time.Minute)
	// Second call must not push the expiry out.
	assert.True(t, l.Allow(ctx, 1, "create_todo", 2, time.Hour))
	mr.FastForward(31 * time.Minute)

	// One hour after the first call the counter is gone even though the
	// second call happened half way through.
	assert.True(t, l.Allow(ctx, 1, "create_todo", 2, time.Hour))
	assert.True(t, l.Allow(ctx, 1, "create_todo", 2, time.Hour))
}

func TestAllowFailOpen(t *testing.T) {
	assert.True(t, NewLimiter(nil, "rate_limit").Allow(context.Background(), 1, "create_todo", 1, time.Hour))

	l, mr := newTestLimiter(t)
	mr.Close()
	assert.True(t, l.Allow(context.Background(), 1, "create_todo", 1, time.Hour), "backend failure must not block the call")
}
