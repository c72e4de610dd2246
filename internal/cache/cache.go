// Package cache holds the most recent dashboard snapshot with a fixed
// time-to-live. Concurrent misses share one in-flight load and its result,
// and readers only ever see a complete snapshot.
package cache

import (
	"context"
	"sync"
	"time"

	"dashboard/internal/domain"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 10 * time.Minute
	refreshKey = "snapshot"
)

// Loader runs the fetch → parse → aggregate pipeline.
type Loader func(ctx context.Context, now time.Time) (*domain.Snapshot, error)

type Cache struct {
	ttl time.Duration

	refresh singleflight.Group

	mu          sync.RWMutex
	snapshot    *domain.Snapshot
	refreshedAt time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl}
}

// Read returns the current snapshot without any I/O; nil before the first
// successful refresh.
func (c *Cache) Read() *domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Cache) fresh(now time.Time) (*domain.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil || c.refreshedAt.IsZero() {
		return c.snapshot, false
	}
	return c.snapshot, now.Sub(c.refreshedAt) < c.ttl
}

// RefreshIfStale returns the cached snapshot while it is younger than the
// TTL. Otherwise it runs load; on failure the previous snapshot (possibly
// nil) is returned alongside the error and the cache is left untouched.
func (c *Cache) RefreshIfStale(ctx context.Context, now time.Time, load Loader) (*domain.Snapshot, error) {
	if snapshot, ok := c.fresh(now); ok {
		return snapshot, nil
	}

	// The load outlives the caller that started it; waiters share its result.
	loadCtx := context.WithoutCancel(ctx)
	result, err, _ := c.refresh.Do(refreshKey, func() (interface{}, error) {
		if snapshot, ok := c.fresh(now); ok {
			return snapshot, nil
		}
		snapshot, err := load(loadCtx, now)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snapshot = snapshot
		c.refreshedAt = now
		c.mu.Unlock()
		return snapshot, nil
	})
	if err != nil {
		return c.Read(), err
	}
	return result.(*domain.Snapshot), nil
}

// Invalidate forces the next RefreshIfStale to reload regardless of TTL.
// The current snapshot stays readable until then.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshedAt = time.Time{}
}

func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
