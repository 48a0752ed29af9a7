package coverage

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/territory-engine/internal/boundary"
	"github.com/sells-group/territory-engine/internal/geometry"
	"github.com/sells-group/territory-engine/internal/isochrone"
	"github.com/sells-group/territory-engine/internal/model"
)

// ErrNoOrigins is returned when a coverage request carries no origin
// points. This is a request-shape error, distinct from the silently
// empty result produced when every provider call fails.
var ErrNoOrigins = eris.New("coverage: at least one origin is required")

// defaultConcurrency bounds the per-origin isochrone fan-out.
const defaultConcurrency = 4

// Calculator answers "which zones are reachable within N minutes of
// these origins" by combining the routing provider, the boundary
// store, and the coverage cache.
type Calculator struct {
	client      isochrone.Client
	boundaries  *boundary.Store
	cache       *Cache
	concurrency int
	log         *zap.Logger
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithConcurrency bounds how many isochrone requests run at once.
func WithConcurrency(n int) CalculatorOption {
	return func(c *Calculator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewCalculator(client isochrone.Client, boundaries *boundary.Store, cache *Cache, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		client:      client,
		boundaries:  boundaries,
		cache:       cache,
		concurrency: defaultConcurrency,
		log:         zap.L().With(zap.String("service", "coverage")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute returns the set of zone ids whose centroid falls inside any
// isochrone reachable within durationMinutes of the origins. Results
// are cached by request fingerprint; a fresh cached result short-
// circuits the provider calls entirely.
func (c *Calculator) Compute(ctx context.Context, durationMinutes int, origins []model.Origin) (*model.CoverageResult, error) {
	if len(origins) == 0 {
		return nil, ErrNoOrigins
	}
	if durationMinutes < 0 {
		return nil, eris.Errorf("coverage: duration must not be negative, got %d", durationMinutes)
	}

	fp := Fingerprint(durationMinutes, origins)
	if entry, err := c.cache.Lookup(ctx, fp); err != nil {
		c.log.Warn("cache lookup failed", zap.Error(err))
	} else if entry != nil {
		return &model.CoverageResult{ZoneIDs: entry.ZoneIDs, FromCache: true}, nil
	}

	polygons := c.fetchIsochrones(ctx, durationMinutes, origins)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "coverage: compute")
	}

	zoneIDs := c.coveredZones(polygons)

	entry := model.CoverageEntry{
		Fingerprint:     fp,
		DurationMinutes: durationMinutes,
		Origins:         origins,
		ZoneIDs:         zoneIDs,
	}
	if err := c.cache.Save(ctx, entry); err != nil {
		// The result is still good; caching it is best effort.
		c.log.Warn("cache write failed", zap.String("fingerprint", fp), zap.Error(err))
	}

	return &model.CoverageResult{ZoneIDs: zoneIDs, FromCache: false}, nil
}

// fetchIsochrones calls the provider once per origin and merges every
// returned polygon into one candidate slice. A failed origin is
// logged and contributes nothing; coverage is the union of whatever
// succeeded.
func (c *Calculator) fetchIsochrones(ctx context.Context, durationMinutes int, origins []model.Origin) []geometry.Polygon {
	var (
		mu       sync.Mutex
		polygons []geometry.Polygon
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, origin := range origins {
		g.Go(func() error {
			polys, err := c.client.Isochrone(ctx, geometry.Point{Lng: origin.Lng, Lat: origin.Lat}, durationMinutes)
			if err != nil {
				c.log.Warn("isochrone call failed, skipping origin",
					zap.Float64("lat", origin.Lat),
					zap.Float64("lng", origin.Lng),
					zap.String("rep_id", origin.RepID),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			polygons = append(polygons, polys...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are skipped above
	return polygons
}

// coveredZones runs the centroid containment test for every zone
// against the candidate polygons and returns the matching ids sorted.
func (c *Calculator) coveredZones(polygons []geometry.Polygon) []string {
	ids := []string{}
	if len(polygons) == 0 {
		return ids
	}
	for _, zone := range c.boundaries.Zones() {
		if geometry.AnyContains(polygons, zone.Centroid) {
			ids = append(ids, zone.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
