package geo

import (
	"math"

	cgeom "github.com/ctessum/geom"
	"github.com/twpayne/go-geom"
)

// Repair cleans polygonal geometry so later boolean operations are stable.
//
// Duplicate vertices are removed and degenerate rings and slivers dropped. A
// polygon whose edges do not cross keeps its ring structure and winding. A
// self-intersecting polygon is rebuilt with even-odd fill: rings are split at
// their crossings into simple loops, shells and holes come from loop nesting.
// Members that cross each other are then unioned.
func Repair(mp *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	if IsEmpty(mp) {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	if err := Validate("repair", mp); err != nil {
		return nil, err
	}

	out := geom.NewMultiPolygon(geom.XY)
	for _, p := range Polygons(mp) {
		var rings [][]geom.Coord
		for j := 0; j < p.NumLinearRings(); j++ {
			r := openRing(p.LinearRing(j).Coords())
			if degenerateRing(r) {
				if j == 0 {
					rings = nil
					break
				}
				continue
			}
			rings = append(rings, r)
		}
		if len(rings) == 0 {
			continue
		}

		if hasCrossings(rings) {
			for _, rp := range Polygons(resolve(rings)) {
				_ = out.Push(rp)
			}
			continue
		}
		closed := make([][]geom.Coord, len(rings))
		for i, r := range rings {
			closed[i] = closeRing(r)
		}
		cp, err := geom.NewPolygon(geom.XY).SetCoords(closed)
		if err != nil {
			return nil, invalid("repair", "%v", err)
		}
		_ = out.Push(cp)
	}

	// Members that overlap each other are merged.
	if out.NumPolygons() > 1 && hasCrossings(memberRings(out)) {
		parts := make([]cgeom.Polygon, 0, out.NumPolygons())
		for _, p := range Polygons(out) {
			parts = append(parts, toClip(FromPolygons(p)))
		}
		return fromClip(unionAll(parts)), nil
	}
	return out, nil
}

// degenerateRing reports a ring with too few vertices, or one that encloses no
// area without crossing itself. A figure eight has zero signed area but is not
// degenerate.
func degenerateRing(r []geom.Coord) bool {
	if len(r) < 3 {
		return true
	}
	return math.Abs(signedArea(r)) < sliverArea && !hasCrossings([][]geom.Coord{r})
}

func memberRings(mp *geom.MultiPolygon) [][]geom.Coord {
	var rings [][]geom.Coord
	for _, p := range Polygons(mp) {
		for j := 0; j < p.NumLinearRings(); j++ {
			rings = append(rings, openRing(p.LinearRing(j).Coords()))
		}
	}
	return rings
}

// resolve rebuilds a polygon whose edges cross with even-odd fill. Each ring is
// split at its own crossings into simple loops that are assembled by nesting;
// the ring regions are then combined by symmetric difference.
func resolve(rings [][]geom.Coord) *geom.MultiPolygon {
	if len(rings) == 1 {
		return assemble(node(rings[0]))
	}
	acc := toClip(assemble(node(rings[0])))
	for _, r := range rings[1:] {
		acc = clipOp(acc.XOr(toClip(assemble(node(r)))))
	}
	return fromClip(acc)
}
