// Package geometry holds the small planar geometry types used by the
// boundary store and coverage calculator. Coordinates are WGS84
// lng/lat degrees treated as planar, which is accurate enough for
// postal-zone-sized features.
package geometry

// Point is a lng/lat coordinate pair.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Ring is an ordered list of vertices. A ring may or may not repeat
// its first vertex at the end; both forms are accepted.
type Ring []Point

// Polygon is one outer ring with optional holes.
type Polygon struct {
	Outer Ring   `json:"outer"`
	Holes []Ring `json:"holes,omitempty"`
}

// MultiPolygon is a list of polygon parts.
type MultiPolygon []Polygon

// FirstPolygon reduces a multi-part geometry to its first part. Zone
// boundaries with multiple parts (islands, enclaves) are represented
// by their first ring only; the reduction is isolated here so it can
// be swapped for true multi-part handling later.
func FirstPolygon(mp MultiPolygon) (Polygon, bool) {
	if len(mp) == 0 {
		return Polygon{}, false
	}
	return mp[0], true
}

// Centroid returns the unweighted arithmetic mean of the ring's
// vertices. This is not an area centroid: for non-convex or elongated
// rings the result can fall outside the ring. If the ring is closed
// (first vertex repeated at the end) the closing vertex is excluded
// once so it does not double-weight.
func Centroid(r Ring) (Point, bool) {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	if n == 0 {
		return Point{}, false
	}

	var sumLng, sumLat float64
	for _, p := range r[:n] {
		sumLng += p.Lng
		sumLat += p.Lat
	}
	return Point{
		Lng: sumLng / float64(n),
		Lat: sumLat / float64(n),
	}, true
}

// IsDegenerate reports whether the ring has fewer than three distinct
// vertices and therefore encloses no area.
func (r Ring) IsDegenerate() bool {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	return n < 3
}
