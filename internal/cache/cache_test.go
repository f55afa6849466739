package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestShardedExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, WithClock(clock.Now))

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, time.Minute, c.TTLRemaining("a"))

	clock.Advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry expires exactly at its TTL")
	assert.Zero(t, c.TTLRemaining("a"))

	c.Delete("a")
	assert.Zero(t, c.Len())
}

func TestShardedUpdate(t *testing.T) {
	clock := newFakeClock()
	c := New[int](10*time.Second, WithClock(clock.Now))
	incr := func(cur int, _ bool) int { return cur + 1 }

	assert.Equal(t, 1, c.Update("client", incr))
	clock.Advance(4 * time.Second)
	assert.Equal(t, 2, c.Update("client", incr))
	assert.Equal(t, 6*time.Second, c.TTLRemaining("client"), "updates keep the original window")

	clock.Advance(6 * time.Second)
	var sawFound bool
	got := c.Update("client", func(cur int, found bool) int {
		sawFound = found
		return cur + 1
	})
	assert.False(t, sawFound)
	assert.Equal(t, 1, got, "an expired entry starts over")
}

// TestShardedConcurrentUpdate tests that updates on one key are never lost
func TestShardedConcurrentUpdate(t *testing.T) {
	c := New[int](time.Hour)

	const goroutines, perGoroutine = 50, 100
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.Update("hot", func(cur int, _ bool) int { return cur + 1 })
			}
		}()
	}
	wg.Wait()

	v, ok := c.Get("hot")
	require.True(t, ok)
	assert.Equal(t, goroutines*perGoroutine, v)
}

// TestShardedConcurrentAccess tests mixed concurrent access for the race detector
func TestShardedConcurrentAccess(t *testing.T) {
	c := New[string](time.Hour)
	ctx := context.Background()

	const goroutines, ops = 50, 100
	var wg sync.WaitGroup
	wg.Add(3 * goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				c.Set(fmt.Sprintf("key-%d-%d", id, j), "v")
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				_, _ = c.Get(fmt.Sprintf("key-%d-%d", id, j))
				c.Delete(fmt.Sprintf("key-%d-%d", id, j))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < ops/10; j++ {
				_, err := c.CleanExpired(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestShardedCleanExpired(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("old-%d", i), i)
	}
	clock.Advance(2 * time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("new-%d", i), i)
	}

	assert.Equal(t, 10, c.Stats().Expired)

	removed, err := c.CleanExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, removed)
	assert.Equal(t, 5, c.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.CleanExpired(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShardedCleanupWorker(t *testing.T) {
	var expired atomic.Bool
	clock := func() time.Time {
		if expired.Load() {
			return time.Now().Add(time.Hour)
		}
		return time.Now()
	}
	c := New[int](time.Minute, WithClock(clock), WithCleanupInterval(5*time.Millisecond))

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("expire-%d", i), i)
	}

	c.StartCleanupWorker()
	c.StartCleanupWorker()
	defer c.StopCleanupWorker()

	expired.Store(true)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	c.StopCleanupWorker()
	c.StopCleanupWorker()
}

// TestShardedDistribution tests that keys spread across shards
func TestShardedDistribution(t *testing.T) {
	c := New[int](time.Hour, WithShards(16))

	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("client-%d", i), i)
	}

	stats := c.Stats()
	assert.Equal(t, 16, stats.Shards)
	assert.Equal(t, 1000, stats.Items)

	nonEmpty := 0
	for _, n := range stats.PerShard {
		if n > 0 {
			nonEmpty++
		}
	}
	assert.Greater(t, nonEmpty, 10)
}
