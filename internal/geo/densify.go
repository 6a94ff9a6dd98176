package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Densify inserts evenly spaced vertices so that no ring segment of mp is longer
// than maxSegmentKm, then repairs the result. Segment length is measured with
// the metric at each polygon's centroid latitude (see SegmentLengthsKm).
func Densify(mp *geom.MultiPolygon, maxSegmentKm float64) (*geom.MultiPolygon, error) {
	if !(maxSegmentKm > 0) || !finite(maxSegmentKm) {
		return nil, invalid("densify", "max segment %v km must be positive", maxSegmentKm)
	}
	if IsEmpty(mp) {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	if err := Validate("densify", mp); err != nil {
		return nil, err
	}

	out := geom.NewMultiPolygon(geom.XY)
	for _, p := range Polygons(mp) {
		m := MetricAt(CentroidLatitude(p))
		rings := make([][]geom.Coord, 0, p.NumLinearRings())
		for j := 0; j < p.NumLinearRings(); j++ {
			rings = append(rings, densifyRing(p.LinearRing(j).Coords(), maxSegmentKm, m))
		}
		dp, err := geom.NewPolygon(geom.XY).SetCoords(rings)
		if err != nil {
			return nil, invalid("densify", "%v", err)
		}
		_ = out.Push(dp)
	}
	return Repair(out)
}

func densifyRing(ring []geom.Coord, maxKm float64, m Metric) []geom.Coord {
	out := make([]geom.Coord, 0, len(ring))
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		out = append(out, geom.Coord{a[0], a[1]})
		k := int(math.Ceil(m.DistanceKm(a, b) / maxKm))
		for s := 1; s < k; s++ {
			t := float64(s) / float64(k)
			out = append(out, geom.Coord{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t})
		}
	}
	last := ring[len(ring)-1]
	return append(out, geom.Coord{last[0], last[1]})
}

// SegmentLengthsKm returns the length of every ring segment of p, measured the
// same way Densify measures them.
func SegmentLengthsKm(p *geom.Polygon) []float64 {
	m := MetricAt(CentroidLatitude(p))
	var out []float64
	for j := 0; j < p.NumLinearRings(); j++ {
		ring := p.LinearRing(j).Coords()
		for i := 0; i+1 < len(ring); i++ {
			out = append(out, m.DistanceKm(ring[i], ring[i+1]))
		}
	}
	return out
}
