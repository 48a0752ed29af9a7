package geometry

import "github.com/twpayne/go-geom"

// FromGeom converts a decoded go-geom geometry into the internal
// multi-polygon type. Non-areal geometries return nil.
func FromGeom(g geom.T) MultiPolygon {
	switch t := g.(type) {
	case *geom.Polygon:
		return MultiPolygon{fromGeomPolygon(t)}
	case *geom.MultiPolygon:
		mp := make(MultiPolygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			mp = append(mp, fromGeomPolygon(t.Polygon(i)))
		}
		return mp
	default:
		return nil
	}
}

func fromGeomPolygon(p *geom.Polygon) Polygon {
	var out Polygon
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := fromGeomCoords(p.LinearRing(i).Coords())
		if i == 0 {
			out.Outer = ring
		} else {
			out.Holes = append(out.Holes, ring)
		}
	}
	return out
}

func fromGeomCoords(coords []geom.Coord) Ring {
	r := make(Ring, 0, len(coords))
	for _, c := range coords {
		r = append(r, Point{Lng: c[0], Lat: c[1]})
	}
	return r
}
