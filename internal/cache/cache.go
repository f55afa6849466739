// Package cache provides a sharded in-memory TTL map for short-lived request state.
// It never holds domain entities; those are always read from the store.
package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const (
	defaultShardCount      = 16
	defaultTTL             = time.Minute
	defaultCleanupInterval = time.Minute
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]*entry[V]
}

// Sharded is a thread-safe map whose entries expire after a fixed TTL.
// Keys are spread over independently locked shards by FNV hash.
type Sharded[V any] struct {
	shards          []*shard[V]
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	workerMu   sync.Mutex
	workerStop chan struct{}
	workerWg   sync.WaitGroup
}

// Option customizes a Sharded store.
type Option func(*options)

type options struct {
	shards          int
	cleanupInterval time.Duration
	now             func() time.Time
}

func WithShards(n int) Option {
	return func(o *options) { o.shards = n }
}

func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a store whose entries live for ttl after they were last written.
func New[V any](ttl time.Duration, opts ...Option) *Sharded[V] {
	o := options{shards: defaultShardCount, cleanupInterval: defaultCleanupInterval, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shards < 1 {
		o.shards = defaultShardCount
	}
	if o.cleanupInterval <= 0 {
		o.cleanupInterval = defaultCleanupInterval
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	shards := make([]*shard[V], o.shards)
	for i := range shards {
		shards[i] = &shard[V]{items: make(map[string]*entry[V])}
	}
	return &Sharded[V]{
		shards:          shards,
		ttl:             ttl,
		cleanupInterval: o.cleanupInterval,
		now:             o.now,
	}
}

func (c *Sharded[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the live value stored under key.
func (c *Sharded[V]) Get(key string) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key and restarts its TTL.
func (c *Sharded[V]) Set(key string, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = &entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Update atomically replaces the value under key with fn(current, found).
// An expired entry is passed as not found. The TTL is kept unless the entry was (re)created.
func (c *Sharded[V]) Update(key string, fn func(current V, found bool) V) V {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := c.now()
	e, ok := s.items[key]
	if ok && now.Before(e.expiresAt) {
		e.value = fn(e.value, true)
		return e.value
	}

	var zero V
	e = &entry[V]{value: fn(zero, false), expiresAt: now.Add(c.ttl)}
	s.items[key] = e
	return e.value
}

// TTLRemaining reports how long the entry under key stays alive.
func (c *Sharded[V]) TTLRemaining(key string) time.Duration {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[key]
	if !ok {
		return 0
	}
	if d := e.expiresAt.Sub(c.now()); d > 0 {
		return d
	}
	return 0
}

func (c *Sharded[V]) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len counts stored entries, expired ones included.
func (c *Sharded[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *Sharded[V]) CleanExpired(ctx context.Context) (int, error) {
	removed := 0
	for _, s := range c.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		now := c.now()
		s.mu.Lock()
		for key, e := range s.items {
			if !now.Before(e.expiresAt) {
				delete(s.items, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

// StartCleanupWorker periodically removes expired entries until StopCleanupWorker.
func (c *Sharded[V]) StartCleanupWorker() {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()
	if c.workerStop != nil {
		return
	}

	c.workerStop = make(chan struct{})
	c.workerWg.Add(1)
	go c.cleanupLoop(c.workerStop)
}

func (c *Sharded[V]) StopCleanupWorker() {
	c.workerMu.Lock()
	defer c.workerMu.Unlock()
	if c.workerStop == nil {
		return
	}

	close(c.workerStop)
	c.workerWg.Wait()
	c.workerStop = nil
}

func (c *Sharded[V]) cleanupLoop(stop <-chan struct{}) {
	defer c.workerWg.Done()

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = c.CleanExpired(ctx)
			cancel()
		}
	}
}

// Stats describes how entries are spread over the shards.
type Stats struct {
	Shards   int
	Items    int
	Expired  int
	PerShard []int
}

func (c *Sharded[V]) Stats() Stats {
	st := Stats{Shards: len(c.shards), PerShard: make([]int, len(c.shards))}
	now := c.now()
	for i, s := range c.shards {
		s.mu.RLock()
		st.PerShard[i] = len(s.items)
		for _, e := range s.items {
			if !now.Before(e.expiresAt) {
				st.Expired++
			}
		}
		s.mu.RUnlock()
		st.Items += st.PerShard[i]
	}
	return st
}
