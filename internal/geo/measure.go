package geo

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Area returns the planar area of mp in square degrees.
func Area(mp *geom.MultiPolygon) float64 {
	if IsEmpty(mp) {
		return 0
	}
	return mp.Area()
}

// AreaKm2 converts the planar area of mp to square kilometres using refLat as
// the representative latitude.
func AreaKm2(mp *geom.MultiPolygon, refLat float64) float64 {
	return MetricAt(refLat).AreaKm2(Area(mp))
}

// PolygonAreaKm2 returns the area of p in square kilometres, scaled at the
// latitude of its own centroid.
func PolygonAreaKm2(p *geom.Polygon) float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return 0
	}
	return MetricAt(CentroidLatitude(p)).AreaKm2(p.Area())
}

// CentroidLatitude returns the latitude of the area centroid of g, falling back
// to the middle of its bounding box for degenerate input.
func CentroidLatitude(g geom.T) float64 {
	if c, err := xy.Centroid(g); err == nil && len(c) >= 2 && finite(c[1]) {
		return c[1]
	}
	b := g.Bounds()
	return (b.Min(1) + b.Max(1)) / 2
}

// Contains reports whether pt lies inside mp: inside some exterior ring and
// outside all of that polygon's holes.
func Contains(mp *geom.MultiPolygon, pt geom.Coord) bool {
	for _, p := range Polygons(mp) {
		if p.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(geom.XY, pt, p.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for j := 1; j < p.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, pt, p.LinearRing(j).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// NearestBoundaryDistanceKm returns the distance in kilometres from pt to the
// nearest exterior ring of mp. Rings are projected into a kilometre frame
// centred on pt before measuring. Empty geometry yields 0.
func NearestBoundaryDistanceKm(mp *geom.MultiPolygon, pt geom.Coord) float64 {
	m := MetricAt(pt[1])
	best := math.Inf(1)
	for _, p := range Polygons(mp) {
		if p.NumLinearRings() == 0 {
			continue
		}
		flat := p.LinearRing(0).FlatCoords()
		local := make([]float64, len(flat))
		for i := 0; i < len(flat); i += 2 {
			local[i] = (flat[i] - pt[0]) * m.KmPerDegLon
			local[i+1] = (flat[i+1] - pt[1]) * m.KmPerDegLat
		}
		if d := xy.DistanceFromPointToLineString(geom.XY, geom.Coord{0, 0}, local); d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// RepresentativePoint returns a point guaranteed to lie in the interior of p.
// A horizontal line through the middle of the bounding box is intersected with
// every ring; the midpoint of the widest inside span is returned. Other scan
// heights are tried when the middle one is degenerate.
func RepresentativePoint(p *geom.Polygon) geom.Coord {
	if p == nil || p.NumLinearRings() == 0 {
		return geom.Coord{0, 0}
	}
	b := p.Bounds()
	minY, maxY := b.Min(1), b.Max(1)
	for _, f := range []float64{0.5, 0.25, 0.75, 0.125, 0.375, 0.625, 0.875} {
		y := minY + (maxY-minY)*f
		if pt, ok := scanlineMidpoint(p, y); ok {
			return pt
		}
	}
	first := p.LinearRing(0).Coords()[0]
	return geom.Coord{first[0], first[1]}
}

func scanlineMidpoint(p *geom.Polygon, y float64) (geom.Coord, bool) {
	var xs []float64
	for j := 0; j < p.NumLinearRings(); j++ {
		ring := p.LinearRing(j).Coords()
		for i := 0; i+1 < len(ring); i++ {
			a, c := ring[i], ring[i+1]
			if (a[1] > y) == (c[1] > y) {
				continue
			}
			t := (y - a[1]) / (c[1] - a[1])
			xs = append(xs, a[0]+t*(c[0]-a[0]))
		}
	}
	if len(xs) < 2 {
		return nil, false
	}
	sort.Float64s(xs)
	bestW := 0.0
	var best geom.Coord
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestW {
			bestW = w
			best = geom.Coord{(xs[i] + xs[i+1]) / 2, y}
		}
	}
	if bestW <= 0 {
		return nil, false
	}
	return best, true
}

// Centroid returns the area centroid of p, or its representative point when the
// centroid cannot be computed.
func Centroid(p *geom.Polygon) geom.Coord {
	if c, err := xy.Centroid(p); err == nil && len(c) >= 2 && finite(c[0]) && finite(c[1]) {
		return geom.Coord{c[0], c[1]}
	}
	return RepresentativePoint(p)
}

// Envelope returns the bounding rectangle of mp grown by padKm on every side.
func Envelope(mp *geom.MultiPolygon, padKm float64) *geom.Polygon {
	b := mp.Bounds()
	m := MetricAt((b.Min(1) + b.Max(1)) / 2)
	dx, dy := padKm/m.KmPerDegLon, padKm/m.KmPerDegLat
	minX, minY := b.Min(0)-dx, b.Min(1)-dy
	maxX, maxY := b.Max(0)+dx, b.Max(1)+dy
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})
}
