package model

import "time"

// Origin is a representative's location supplied per coverage request.
// Not persisted outside of cache entries.
type Origin struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	RepID string  `json:"rep_id,omitempty"`
}

// CoverageEntry is one cached coverage computation, keyed by the
// request fingerprint. Entries older than the freshness window are
// treated as absent but not deleted; the next successful computation
// overwrites them.
type CoverageEntry struct {
	Fingerprint     string    `json:"fingerprint"`
	DurationMinutes int       `json:"duration_minutes"`
	Origins         []Origin  `json:"origins"`
	ZoneIDs         []string  `json:"zone_ids"`
	ComputedAt      time.Time `json:"computed_at"`
}

// CoverageResult is what the calculator returns to callers.
type CoverageResult struct {
	ZoneIDs   []string `json:"zone_ids"`
	FromCache bool     `json:"from_cache"`
}
