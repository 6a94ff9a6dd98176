package geo

import (
	"math"

	cgeom "github.com/ctessum/geom"
	"github.com/twpayne/go-geom"
)

// capSegments is the number of segments used for each half circle of an edge
// capsule.
const capSegments = 8

// Buffer inflates mp outward by distKm. The result is the union of mp with a
// capsule (stadium) around every ring edge, which is the Minkowski sum of the
// polygon and a disc with polygonal end caps. Gaps narrower than twice distKm
// between members are closed. The input is repaired first, and non-positive
// distances return the repaired copy.
//
// A result that loses an input vertex or covers less area than the input is
// reported as a GeometryError rather than returned.
func Buffer(mp *geom.MultiPolygon, distKm float64) (*geom.MultiPolygon, error) {
	if IsEmpty(mp) {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	if err := Validate("buffer", mp); err != nil {
		return nil, err
	}
	src, err := Repair(mp)
	if err != nil {
		return nil, err
	}
	if distKm <= 0 || !finite(distKm) || IsEmpty(src) {
		return src, nil
	}

	m := MetricAt(CentroidLatitude(src))
	parts := []cgeom.Polygon{toClip(src)}
	for _, ring := range memberRings(src) {
		for i := range ring {
			parts = append(parts, capsule(ring[i], ring[(i+1)%len(ring)], distKm, m))
		}
	}
	out := fromClip(unionAll(parts))
	if err := checkGrown(src, out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkGrown verifies that out covers every vertex of in and at least its area.
func checkGrown(in, out *geom.MultiPolygon) error {
	if Area(out) < Area(in)*(1-1e-9) {
		return invalid("buffer", "result area %g is below input area %g", Area(out), Area(in))
	}
	for _, ring := range memberRings(in) {
		for _, c := range ring {
			if !Contains(out, c) {
				return invalid("buffer", "result does not cover input vertex (%g, %g)", c[0], c[1])
			}
		}
	}
	return nil
}

// capsule builds the convex stadium of radius r km around segment ab. The shape
// is constructed in a kilometre frame and mapped back to degrees so that it is
// round on the ground rather than in lon/lat. Points are in the clipper frame.
func capsule(a, b geom.Coord, r float64, m Metric) cgeom.Polygon {
	bx := (b[0] - a[0]) * m.KmPerDegLon
	by := (b[1] - a[1]) * m.KmPerDegLat

	phi := math.Atan2(by, bx)
	if bx == 0 && by == 0 {
		phi = 0
	}

	at := func(cx, cy, t float64) cgeom.Point {
		x, y := r*snapUnit(math.Cos(t)), r*snapUnit(math.Sin(t))
		return clipPoint(a[0]+(cx+x)/m.KmPerDegLon, a[1]+(cy+y)/m.KmPerDegLat)
	}

	path := make(cgeom.Path, 0, 2*(capSegments+1))
	for i := 0; i <= capSegments; i++ {
		path = append(path, at(0, 0, phi+math.Pi/2+math.Pi*float64(i)/capSegments))
	}
	for i := 0; i <= capSegments; i++ {
		path = append(path, at(bx, by, phi-math.Pi/2+math.Pi*float64(i)/capSegments))
	}
	return cgeom.Polygon{path}
}

// snapUnit zeroes sine and cosine values that are rounding noise, such as
// cos(pi/2).
func snapUnit(v float64) float64 {
	if math.Abs(v) < 1e-12 {
		return 0
	}
	return v
}
