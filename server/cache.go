package server

import (
	"context"
	"sync"
	"time"

	"github.com/sonnes/chaukidar/clock"
)

// cache holds one value for ttl. Failed loads are not cached. Concurrent
// misses share a single load, which runs detached from the requesting
// client's cancellation since every waiting client is served its result.
type cache[T any] struct {
	clock clock.Clock
	ttl   time.Duration
	load  func(context.Context) (T, error)

	mu      sync.Mutex
	value   T
	expires time.Time
	valid   bool
}

func newCache[T any](clk clock.Clock, ttl time.Duration, load func(context.Context) (T, error)) *cache[T] {
	return &cache[T]{clock: clk, ttl: ttl, load: load}
}

func (c *cache[T]) get(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.clock.Now().Before(c.expires) {
		return c.value, nil
	}
	v, err := c.load(context.WithoutCancel(ctx))
	if err != nil {
		var zero T
		return zero, err
	}
	c.value = v
	c.expires = c.clock.Now().Add(c.ttl)
	c.valid = true
	return v, nil
}
