package geo

import "github.com/paulmach/orb"

// PointInPolygon reports whether point ([lng, lat]) lies inside the polygon
// using even-odd ray casting. rings[0] is the external ring; a point inside
// any further ring (a hole) is outside the polygon. A polygon without an
// external ring contains nothing.
func PointInPolygon(point orb.Point, rings orb.Polygon) bool {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return false
	}

	if !ringContains(point, rings[0]) {
		return false
	}

	for _, hole := range rings[1:] {
		if ringContains(point, hole) {
			return false
		}
	}
	return true
}

// ringContains runs the pnpoly crossing test. Points on an edge fall on
// whichever side the predicate puts them; the result is deterministic.
func ringContains(point orb.Point, ring orb.Ring) bool {
	x, y := point[0], point[1]
	inside := false

	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if ((yi > y) != (yj > y)) &&
			(x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
	}
	return inside
}

// Bound returns the bounding box of the external ring. ok is false when the
// polygon has no external ring.
func Bound(rings orb.Polygon) (b orb.Bound, ok bool) {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return orb.Bound{}, false
	}
	return rings[0].Bound(), true
}
