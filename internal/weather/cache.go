package weather

import (
	"context"
	"sync"
	"time"
)

// Cache wraps a Provider and serves reports from memory while they are
// younger than the staleness window. Entries are keyed by location; there is
// no cross-process coordination.
type Cache struct {
	mu       sync.RWMutex
	provider Provider
	ttl      time.Duration
	entries  map[string]Report

	// now is swappable for tests.
	now func() time.Time
}

// NewCache creates a cache around the given provider with the given
// staleness window.
func NewCache(provider Provider, ttl time.Duration) *Cache {
	return &Cache{
		provider: provider,
		ttl:      ttl,
		entries:  make(map[string]Report),
		now:      time.Now,
	}
}

// Fetch returns the cached report when it is still fresh, otherwise fetches
// from the underlying provider and caches the result. A failed refetch does
// not evict the stale entry, but the error is returned so the caller's
// fallback policy applies.
func (c *Cache) Fetch(ctx context.Context, location string) (Report, error) {
	c.mu.RLock()
	cached, ok := c.entries[location]
	c.mu.RUnlock()

	if ok && c.now().Sub(cached.FetchedAt) <= c.ttl {
		return cached, nil
	}

	report, err := c.provider.Fetch(ctx, location)
	if err != nil {
		return Report{}, err
	}
	if report.FetchedAt.IsZero() {
		report.FetchedAt = c.now()
	}

	c.mu.Lock()
	c.entries[location] = report
	c.mu.Unlock()

	return report, nil
}

// Refresh forces a refetch for the location regardless of freshness. Used by
// the periodic advisory refresh job.
func (c *Cache) Refresh(ctx context.Context, location string) error {
	report, err := c.provider.Fetch(ctx, location)
	if err != nil {
		return err
	}
	if report.FetchedAt.IsZero() {
		report.FetchedAt = c.now()
	}

	c.mu.Lock()
	c.entries[location] = report
	c.mu.Unlock()

	return nil
}
