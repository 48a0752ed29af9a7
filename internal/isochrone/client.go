// Package isochrone wraps the external travel-time isochrone service.
// Given an origin and a duration it returns the reachable-area
// polygons; the coverage calculator decides how failures degrade.
package isochrone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/time/rate"

	"github.com/sells-group/territory-engine/internal/geometry"
	"github.com/sells-group/territory-engine/internal/resilience"
)

const (
	defaultBaseURL = "https://api.mapbox.com"
	defaultProfile = "driving"

	// requestTimeout bounds each provider round trip. A timeout is
	// treated identically to any other provider failure.
	requestTimeout = 10 * time.Second
)

// Client answers reachable-area queries for one origin at a time.
type Client interface {
	// Isochrone returns the polygons reachable within durationMinutes
	// of travel from origin.
	Isochrone(ctx context.Context, origin geometry.Point, durationMinutes int) ([]geometry.Polygon, error)
}

// Option configures the provider client.
type Option func(*client)

// WithBaseURL overrides the provider endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)) }
}

// WithRetries enables retrying transient provider failures. The
// default is zero, matching the provider contract.
func WithRetries(n int) Option {
	return func(c *client) { c.retry.Retries = n }
}

// WithProfile sets the routing profile (driving, walking, cycling).
func WithProfile(profile string) Option {
	return func(c *client) { c.profile = profile }
}

type client struct {
	baseURL    string
	token      string
	profile    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a provider client. The access token may be empty;
// its absence is a configuration error surfaced at request time, not
// at construction.
func NewClient(token string, opts ...Option) Client {
	c := &client{
		baseURL:    defaultBaseURL,
		token:      token,
		profile:    defaultProfile,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(5, 5),
		retry: resilience.RetryConfig{
			OnRetry: resilience.RetryLogger("isochrone"),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Isochrone(ctx context.Context, origin geometry.Point, durationMinutes int) ([]geometry.Polygon, error) {
	if c.token == "" {
		return nil, eris.New("isochrone: access token not configured")
	}
	if durationMinutes < 0 {
		return nil, eris.Errorf("isochrone: negative duration %d", durationMinutes)
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]geometry.Polygon, error) {
		return c.fetch(ctx, origin, durationMinutes)
	})
}

func (c *client) fetch(ctx context.Context, origin geometry.Point, durationMinutes int) ([]geometry.Polygon, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "isochrone: rate limit")
	}

	params := url.Values{
		"contours_minutes": {strconv.Itoa(durationMinutes)},
		"polygons":         {"true"},
		"access_token":     {c.token},
	}
	reqURL := fmt.Sprintf("%s/isochrone/v1/mapbox/%s/%f,%f?%s",
		c.baseURL, c.profile, origin.Lng, origin.Lat, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "isochrone: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "isochrone: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("isochrone: provider returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "isochrone: read body")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, eris.Wrap(err, "isochrone: parse response")
	}

	// Isochrones are single-ring polygons; degenerate contours (fewer
	// than 3 vertices) contribute no coverage.
	var polys []geometry.Polygon
	for _, f := range fc.Features {
		for _, p := range geometry.FromGeom(f.Geometry) {
			if !p.Outer.IsDegenerate() {
				polys = append(polys, p)
			}
		}
	}
	return polys, nil
}
