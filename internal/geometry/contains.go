package geometry

// ContainsPoint reports whether p lies inside the polygon using the
// even-odd (ray casting) rule: a horizontal ray from p toward +lng
// crosses the boundary an odd number of times iff p is inside. Points
// inside a hole are outside. Degenerate rings (fewer than 3 vertices)
// contain nothing.
//
// Boundary tie-breaking follows from the half-open crossing test
// below: a point exactly on a lower or left edge tests inside, on an
// upper or right edge outside. Tests pin this behavior; callers must
// not depend on an idealized "on the boundary" answer.
func (poly Polygon) ContainsPoint(p Point) bool {
	if !ringContains(poly.Outer, p) {
		return false
	}
	for _, hole := range poly.Holes {
		if ringContains(hole, p) {
			return false
		}
	}
	return true
}

// ringContains runs the even-odd crossing count for a single ring.
func ringContains(r Ring, p Point) bool {
	if r.IsDegenerate() {
		return false
	}

	inside := false
	n := len(r)
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := r[i], r[j]
		// Half-open test: edge counts when it spans p.Lat with one
		// endpoint strictly above and the other at-or-below.
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			crossLng := a.Lng + (p.Lat-a.Lat)/(b.Lat-a.Lat)*(b.Lng-a.Lng)
			if p.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// AnyContains reports whether any polygon in the set contains p.
func AnyContains(polys []Polygon, p Point) bool {
	for _, poly := range polys {
		if poly.ContainsPoint(p) {
			return true
		}
	}
	return false
}
