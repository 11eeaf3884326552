// Package ratelimit implements fixed-window request counters kept either in
// process memory or in Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// Limiter counts hits per key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) Decision
	Close() error
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	WindowEnd time.Time
}

// RetryAfter is the time left until the window resets, rounded up to a second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.WindowEnd.Sub(now)
	if wait <= 0 {
		return 0
	}
	if rounded := wait.Truncate(time.Second); rounded != wait {
		return rounded + time.Second
	}
	return wait
}

func decide(count, limit int, windowEnd time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: remaining,
		WindowEnd: windowEnd,
	}
}

type memoryState struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter keeps counters in a map. Expired windows are swept
// periodically until Close is called.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]memoryState
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryLimiter starts a MemoryLimiter and its sweeper.
func NewMemoryLimiter() *MemoryLimiter {
	rl := &MemoryLimiter{
		entries: make(map[string]memoryState),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.entries[key]
	if !ok || !now.Before(state.windowEnd) {
		state = memoryState{windowEnd: now.Add(window)}
	}
	// rejected hits are not counted so the window end stays put
	if state.count >= limit {
		return decide(state.count+1, limit, state.windowEnd)
	}
	state.count++
	rl.entries[key] = state
	return decide(state.count, limit, state.windowEnd)
}

func (rl *MemoryLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *MemoryLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, state := range rl.entries {
		if !now.Before(state.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

// Close stops the sweeper.
func (rl *MemoryLimiter) Close() error {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
	return nil
}
