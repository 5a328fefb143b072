// Package cache provides a TTL cache that collapses concurrent computations
// of the same key into one, with an optional shared second tier.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/ats-checker/internal/metrics"
)

// Options configures a Cache.
type Options struct {
	// Name labels cache metrics.
	Name string
	// TTL is how long a computed value stays fresh.
	TTL time.Duration
	// SweepInterval starts a janitor that drops expired entries. Zero disables it.
	SweepInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
	// Store is an optional second tier shared between processes.
	Store   Store
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Stats reports cache activity.
type Stats struct {
	Hits         int64
	Misses       int64
	Computations int64
	Entries      int
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache maps keys to values of type V. Failed or cancelled computations are
// never stored.
type Cache[V any] struct {
	opts  Options
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[V]

	hits, misses, computations atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache. Call Close to stop the janitor.
func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Cache[V]{
		opts:    opts,
		now:     now,
		entries: make(map[string]entry[V]),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		go c.janitor(opts.SweepInterval)
	} else {
		close(c.done)
	}
	return c
}

// GetOrCompute returns the cached value for key, or runs compute once for
// all concurrent callers of the same key. A caller whose wait is cut short by
// its own context gets the context error; callers sharing a computation that
// was cancelled by its initiator start a new one.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	for {
		if v, ok := c.lookup(ctx, key); ok {
			return v, nil
		}

		ch := c.group.DoChan(key, func() (any, error) {
			if v, ok := c.fresh(key); ok {
				return v, nil
			}
			c.computations.Add(1)
			v, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.put(ctx, key, v)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(V), nil
			}
			if isCancellation(res.Err) && ctx.Err() == nil {
				c.opts.Logger.Debug("shared computation was cancelled, retrying", zap.String("key", key))
				continue
			}
			return zero, res.Err
		}
	}
}

// Get returns a fresh value from memory or the second tier.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	return c.lookup(ctx, key)
}

// Invalidate drops key from every tier.
func (c *Cache[V]) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.opts.Store != nil {
		if err := c.opts.Store.Delete(ctx, key); err != nil {
			c.opts.Logger.Warn("failed to delete from cache store", zap.String("key", key), zap.Error(err))
		}
	}
}

// Purge empties the in-memory tier.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Entries:      n,
	}
}

// Close stops the janitor. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Cache[V]) lookup(ctx context.Context, key string) (V, bool) {
	if v, ok := c.fresh(key); ok {
		c.hits.Add(1)
		c.opts.Metrics.CountCacheLookup(c.opts.Name, true)
		return v, true
	}

	if v, ok := c.fromStore(ctx, key); ok {
		c.hits.Add(1)
		c.opts.Metrics.CountCacheLookup(c.opts.Name, true)
		return v, true
	}

	c.misses.Add(1)
	c.opts.Metrics.CountCacheLookup(c.opts.Name, false)
	var zero V
	return zero, false
}

func (c *Cache[V]) fresh(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) fromStore(ctx context.Context, key string) (V, bool) {
	var zero V
	if c.opts.Store == nil {
		return zero, false
	}
	data, ok, err := c.opts.Store.Get(ctx, key)
	if err != nil {
		c.opts.Logger.Warn("cache store read failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		c.opts.Logger.Warn("cache store entry is corrupt", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, expires: c.now().Add(c.opts.TTL)}
	c.mu.Unlock()
	return v, true
}

func (c *Cache[V]) put(ctx context.Context, key string, v V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, expires: c.now().Add(c.opts.TTL)}
	c.mu.Unlock()

	if c.opts.Store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.opts.Logger.Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.opts.Store.Set(ctx, key, data, c.opts.TTL); err != nil {
		c.opts.Logger.Warn("cache store write failed", zap.String("key", key), zap.Error(err))
	}
}

// sweep drops expired entries and returns how many were removed.
func (c *Cache[V]) sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache[V]) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.sweep(); n > 0 {
				c.opts.Logger.Debug("swept expired cache entries", zap.String("cache", c.opts.Name), zap.Int("removed", n))
			}
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
