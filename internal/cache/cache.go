// Package cache keeps loaded tables for a fixed time window.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gridhall/ghatz/internal/metrics"
)

const DefaultTTL = time.Hour

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL caches values by key. Concurrent misses for the same key share one
// load. Failed loads are not cached.
type TTL[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry[V]
}

func New[V any](ttl time.Duration) *TTL[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTL[V]{ttl: ttl, now: time.Now, entries: make(map[string]entry[V])}
}

// Get returns the cached value for key, calling load on a miss or after
// expiry.
func (c *TTL[V]) Get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Peek(key); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Peek(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Peek returns an unexpired value without loading.
func (c *TTL[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value, replacing any cached one.
func (c *TTL[V]) Set(key string, v V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TTL[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

func (c *TTL[V]) TTL() time.Duration { return c.ttl }
