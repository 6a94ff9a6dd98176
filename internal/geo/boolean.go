package geo

import (
	"math"
	"sort"
	"strconv"

	cgeom "github.com/ctessum/geom"
	"github.com/twpayne/go-geom"
)

// Union merges polygonal geometries. Inputs are validated and repaired first,
// so a self-intersecting input contributes its even-odd area. The result is
// assembled into shells and holes and sorted by descending area.
func Union(mps ...*geom.MultiPolygon) (*geom.MultiPolygon, error) {
	parts := make([]cgeom.Polygon, 0, len(mps))
	for i, mp := range mps {
		if IsEmpty(mp) {
			continue
		}
		if err := Validate(unionEntity(i), mp); err != nil {
			return nil, err
		}
		fixed, err := Repair(mp)
		if err != nil {
			return nil, err
		}
		if IsEmpty(fixed) {
			continue
		}
		parts = append(parts, toClip(fixed))
	}
	if len(parts) == 0 {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	return fromClip(unionAll(parts)), nil
}

// Intersect returns the area shared by a and b. An empty multipolygon means the
// inputs do not overlap.
func Intersect(a, b *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	if IsEmpty(a) || IsEmpty(b) {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	if err := Validate("intersect.a", a); err != nil {
		return nil, err
	}
	if err := Validate("intersect.b", b); err != nil {
		return nil, err
	}
	ba, bb := a.Bounds(), b.Bounds()
	if !ba.Overlaps(geom.XY, bb) {
		return geom.NewMultiPolygon(geom.XY), nil
	}
	return fromClip(clipOp(toClip(a).Intersection(toClip(b)))), nil
}

func unionEntity(i int) string {
	return "union.input[" + strconv.Itoa(i) + "]"
}

// unionAll reduces parts pairwise so that each clipper call sees inputs of
// similar size.
func unionAll(parts []cgeom.Polygon) cgeom.Polygon {
	for len(parts) > 1 {
		next := make([]cgeom.Polygon, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 < len(parts) {
				next = append(next, clipOp(parts[i].Union(parts[i+1])))
			} else {
				next = append(next, parts[i])
			}
		}
		parts = next
	}
	return parts[0]
}

// clipOp narrows a clipper result to its polygon form. Polygon operations
// always return a Polygon; anything else is treated as empty.
func clipOp(g cgeom.Polygonal) cgeom.Polygon {
	p, ok := g.(cgeom.Polygon)
	if !ok {
		return nil
	}
	return p
}

// Clipper coordinates are shifted so every vertex is positive and far from
// zero. Near the axes, trig noise below 1e-18 survives in capsule vertices and
// leaves nearly collinear edges that the sweep misorders.
const (
	clipShiftX = 540.0
	clipShiftY = 270.0
)

func clipPoint(x, y float64) cgeom.Point {
	return cgeom.Point{X: x + clipShiftX, Y: y + clipShiftY}
}

func toClip(mp *geom.MultiPolygon) cgeom.Polygon {
	var out cgeom.Polygon
	for _, p := range Polygons(mp) {
		for j := 0; j < p.NumLinearRings(); j++ {
			ring := openRing(p.LinearRing(j).Coords())
			if len(ring) < 3 {
				continue
			}
			path := make(cgeom.Path, len(ring))
			for k, c := range ring {
				path[k] = clipPoint(c[0], c[1])
			}
			out = append(out, path)
		}
	}
	return out
}

func fromClip(p cgeom.Polygon) *geom.MultiPolygon {
	rings := make([][]geom.Coord, 0, len(p))
	for _, path := range p {
		ring := make([]geom.Coord, len(path))
		for i, pt := range path {
			ring[i] = geom.Coord{pt.X - clipShiftX, pt.Y - clipShiftY}
		}
		rings = append(rings, ring)
	}
	return assemble(rings)
}

// Assemble builds polygons from an unordered set of rings, such as the parts of
// a shapefile record. Ring roles come from nesting depth, not winding.
func Assemble(rings [][]geom.Coord) *geom.MultiPolygon {
	return assemble(rings)
}

type nestedRing struct {
	coords []geom.Coord
	area   float64
	depth  int
	parent int
}

// assemble turns an unordered set of rings into polygons. A ring nested inside
// an even number of other rings is a shell, otherwise a hole of the smallest
// shell that contains it. Shells are wound counter-clockwise and holes
// clockwise. Degenerate rings and slivers are dropped.
func assemble(rings [][]geom.Coord) *geom.MultiPolygon {
	var rs []nestedRing
	for _, r := range rings {
		open := openRing(r)
		if len(open) < 3 {
			continue
		}
		a := math.Abs(signedArea(open))
		if a < sliverArea {
			continue
		}
		rs = append(rs, nestedRing{coords: open, area: a, parent: -1})
	}
	// Larger rings first: a ring can only be nested in a larger one.
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].area > rs[j].area })

	for i := range rs {
		for j := 0; j < i; j++ {
			if ringInside(rs[i].coords, rs[j].coords) {
				rs[i].depth++
				// Iterating larger to smaller, the last container seen is the tightest.
				rs[i].parent = j
			}
		}
	}

	type built struct {
		shell []geom.Coord
		holes [][]geom.Coord
		area  float64
	}
	index := make(map[int]int)
	var polys []*built
	for i, r := range rs {
		if r.depth%2 == 0 {
			index[i] = len(polys)
			polys = append(polys, &built{shell: orient(r.coords, true), area: r.area})
		}
	}
	for _, r := range rs {
		if r.depth%2 == 1 && r.parent >= 0 {
			if pi, ok := index[r.parent]; ok {
				polys[pi].holes = append(polys[pi].holes, orient(r.coords, false))
				polys[pi].area -= r.area
			}
		}
	}
	sort.SliceStable(polys, func(i, j int) bool { return polys[i].area > polys[j].area })

	mp := geom.NewMultiPolygon(geom.XY)
	for _, b := range polys {
		coords := make([][]geom.Coord, 0, 1+len(b.holes))
		coords = append(coords, closeRing(b.shell))
		for _, h := range b.holes {
			coords = append(coords, closeRing(h))
		}
		p, err := geom.NewPolygon(geom.XY).SetCoords(coords)
		if err != nil {
			continue
		}
		_ = mp.Push(p)
	}
	return mp
}
