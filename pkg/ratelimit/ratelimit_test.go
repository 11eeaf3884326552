package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLimiterWindow(t *testing.T) {
	rl := NewMemoryLimiter()
	defer rl.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := rl.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
		require.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
	}

	d := rl.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.RetryAfter(now))

	// other keys are independent
	assert.True(t, rl.Allow(ctx, "ip:5.6.7.8", 3, time.Minute).Allowed)

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow(ctx, "ip:1.2.3.4", 3, time.Minute).Allowed)
}

func TestMemoryLimiterDisabled(t *testing.T) {
	rl := NewMemoryLimiter()
	defer rl.Close()

	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow(context.Background(), "k", 0, time.Minute).Allowed)
	}
}

func TestMemoryLimiterCleanup(t *testing.T) {
	rl := NewMemoryLimiter()
	defer rl.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow(context.Background(), "k", 1, time.Second)

	rl.cleanup(now.Add(2 * time.Second))
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.entries)
}

func TestMemoryLimiterCloseTwice(t *testing.T) {
	rl := NewMemoryLimiter()
	assert.NoError(t, rl.Close())
	assert.NoError(t, rl.Close())
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)

	rl, err := NewRedisLimiter(mr.Addr(), "", 0, zap.NewNop())
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()
	assert.NoError(t, rl.Ping(ctx))

	assert.True(t, rl.Allow(ctx, "ip:1.2.3.4", 2, time.Minute).Allowed)
	assert.True(t, rl.Allow(ctx, "ip:1.2.3.4", 2, time.Minute).Allowed)

	d := rl.Allow(ctx, "ip:1.2.3.4", 2, time.Minute)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Count)

	ttl := mr.TTL(redisKeyPrefix + "ip:1.2.3.4")
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, rl.Allow(ctx, "ip:1.2.3.4", 2, time.Minute).Allowed)
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	rl, err := NewRedisLimiter(mr.Addr(), "", 0, zap.NewNop())
	require.NoError(t, err)
	defer rl.Close()

	mr.Close()
	assert.True(t, rl.Allow(context.Background(), "k", 1, time.Minute).Allowed)
	assert.True(t, rl.Allow(context.Background(), "k", 1, time.Minute).Allowed)
}

func TestNewRedisLimiterUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisLimiter(addr, "", 0, zap.NewNop())
	assert.Error(t, err)
}
