// Package geo is the geometry kernel for hazard footprints: construction and
// validation of lon/lat polygons, boolean operations, repair, inflation,
// measurement and densification. Polygons are go-geom values in the XY layout
// with x = longitude and y = latitude.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// NewPolygon builds a single-ring polygon from [lon, lat] pairs. The ring is
// closed if the last pair does not repeat the first. Entity identifies the input
// in any returned GeometryError.
func NewPolygon(entity string, ring [][]float64) (*geom.Polygon, error) {
	coords := make([]geom.Coord, 0, len(ring)+1)
	for i, pair := range ring {
		if len(pair) < 2 {
			return nil, invalid(entity, "vertex %d has %d ordinates", i, len(pair))
		}
		coords = append(coords, geom.Coord{pair[0], pair[1]})
	}
	return NewPolygonFromRings(entity, [][]geom.Coord{coords})
}

// NewPolygonFromRings builds a polygon whose first ring is the exterior and the
// rest are holes. Rings are closed when needed and validated.
func NewPolygonFromRings(entity string, rings [][]geom.Coord) (*geom.Polygon, error) {
	if len(rings) == 0 {
		return nil, invalid(entity, "polygon has no rings")
	}
	closed := make([][]geom.Coord, 0, len(rings))
	for i, r := range rings {
		c := closeRing(r)
		if err := validateRing(entity, i, c); err != nil {
			return nil, err
		}
		closed = append(closed, c)
	}
	p, err := geom.NewPolygon(geom.XY).SetCoords(closed)
	if err != nil {
		return nil, invalid(entity, "%v", err)
	}
	return p, nil
}

// Validate checks every ring of a polygonal geometry: at least four coordinates,
// closed, and finite. Non-polygonal geometries are rejected.
func Validate(entity string, g geom.T) error {
	mp, ok := AsMultiPolygon(g)
	if !ok {
		return invalid(entity, "geometry %T is not polygonal", g)
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			if err := validateRing(entity, j, p.LinearRing(j).Coords()); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRing(entity string, idx int, ring []geom.Coord) error {
	if len(ring) < 4 {
		return invalid(entity, "ring %d has %d coordinates, need at least 4", idx, len(ring))
	}
	for k, c := range ring {
		if len(c) < 2 || !finite(c[0]) || !finite(c[1]) {
			return invalid(entity, "ring %d vertex %d is not a finite coordinate", idx, k)
		}
	}
	if !sameCoord(ring[0], ring[len(ring)-1]) {
		return invalid(entity, "ring %d is not closed", idx)
	}
	return nil
}

// AsMultiPolygon widens a *geom.Polygon or *geom.MultiPolygon to a
// *geom.MultiPolygon. The second result is false for any other geometry.
func AsMultiPolygon(g geom.T) (*geom.MultiPolygon, bool) {
	switch v := g.(type) {
	case *geom.MultiPolygon:
		if v == nil {
			return geom.NewMultiPolygon(geom.XY), true
		}
		return v, true
	case *geom.Polygon:
		if v == nil {
			return geom.NewMultiPolygon(geom.XY), true
		}
		return FromPolygons(v), true
	default:
		return nil, false
	}
}

// FromPolygons collects polygons into a multipolygon, skipping nil and empty ones.
func FromPolygons(polys ...*geom.Polygon) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		if p == nil || p.NumLinearRings() == 0 {
			continue
		}
		// Push only fails on layout mismatch; every polygon here is XY.
		_ = mp.Push(p)
	}
	return mp
}

// Polygons returns the member polygons of mp.
func Polygons(mp *geom.MultiPolygon) []*geom.Polygon {
	if mp == nil {
		return nil
	}
	out := make([]*geom.Polygon, 0, mp.NumPolygons())
	for i := 0; i < mp.NumPolygons(); i++ {
		out = append(out, mp.Polygon(i))
	}
	return out
}

// IsEmpty reports whether mp is nil or holds no polygons.
func IsEmpty(mp *geom.MultiPolygon) bool {
	return mp == nil || mp.NumPolygons() == 0
}

// Largest returns the member polygon with the greatest planar area.
func Largest(mp *geom.MultiPolygon) *geom.Polygon {
	var best *geom.Polygon
	bestArea := -1.0
	for _, p := range Polygons(mp) {
		if a := p.Area(); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}

// ExteriorCoords returns the closed exterior ring of p as [lon, lat] pairs.
func ExteriorCoords(p *geom.Polygon) [][]float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return nil
	}
	coords := p.LinearRing(0).Coords()
	out := make([][]float64, len(coords))
	for i, c := range coords {
		out[i] = []float64{c[0], c[1]}
	}
	return out
}

func closeRing(r []geom.Coord) []geom.Coord {
	if len(r) == 0 || sameCoord(r[0], r[len(r)-1]) {
		return r
	}
	out := make([]geom.Coord, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

func sameCoord(a, b geom.Coord) bool {
	return len(a) >= 2 && len(b) >= 2 && a[0] == b[0] && a[1] == b[1]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
