package coverage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/model"
	"github.com/sells-group/territory-engine/internal/store"
)

// Freshness is how long a cached coverage entry is trusted. Older
// entries are treated as misses but left in place until the next
// successful computation overwrites them.
const Freshness = 24 * time.Hour

// Cache wraps the persistent coverage table with the freshness
// policy. The clock is injectable so tests can age entries without
// sleeping.
type Cache struct {
	store     store.Store
	freshness time.Duration
	now       func() time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithFreshness overrides the freshness window.
func WithFreshness(d time.Duration) CacheOption {
	return func(c *Cache) { c.freshness = d }
}

func NewCache(s store.Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:     s,
		freshness: Freshness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the entry for the fingerprint if one exists and is
// still fresh. A stale or absent entry returns nil.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (*model.CoverageEntry, error) {
	entry, err := c.store.GetCoverage(ctx, fingerprint)
	if err != nil || entry == nil {
		return nil, err
	}
	if c.now().Sub(entry.ComputedAt) >= c.freshness {
		zap.L().Debug("coverage: cache entry stale",
			zap.String("fingerprint", fingerprint),
			zap.Time("computed_at", entry.ComputedAt))
		return nil, nil
	}
	return entry, nil
}

// Save stores the entry, stamping it with the current time.
func (c *Cache) Save(ctx context.Context, entry model.CoverageEntry) error {
	entry.ComputedAt = c.now()
	return c.store.PutCoverage(ctx, entry)
}

// Clear drops every cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.ClearCoverage(ctx)
}
