package geo

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// sliverArea is the planar area, in square degrees, below which a ring is
// treated as a sliver and dropped (about 0.01 m²).
const sliverArea = 1e-12

// signedArea returns the shoelace area of an open or closed ring.
// Positive for counter-clockwise winding.
func signedArea(ring []geom.Coord) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	a := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return a / 2
}

// openRing strips consecutive duplicate vertices and the closing vertex.
func openRing(ring []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, 0, len(ring))
	for _, c := range ring {
		if len(out) > 0 && sameCoord(out[len(out)-1], c) {
			continue
		}
		out = append(out, geom.Coord{c[0], c[1]})
	}
	for len(out) > 1 && sameCoord(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// reversed returns a copy of ring in the opposite order.
func reversed(ring []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(ring))
	for i, c := range ring {
		out[len(ring)-1-i] = c
	}
	return out
}

// orient returns an open ring wound counter-clockwise when ccw is true and
// clockwise otherwise.
func orient(ring []geom.Coord, ccw bool) []geom.Coord {
	if (signedArea(ring) > 0) != ccw {
		return reversed(ring)
	}
	return ring
}

// samplePoints picks up to three well-spread probe points on an open ring:
// edge midpoints at roughly 0, 1/3 and 2/3 of the way around.
func samplePoints(ring []geom.Coord) []geom.Coord {
	n := len(ring)
	idx := []int{0, n / 3, 2 * n / 3}
	out := make([]geom.Coord, 0, 3)
	for _, i := range idx {
		a, b := ring[i%n], ring[(i+1)%n]
		out = append(out, geom.Coord{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2})
	}
	return out
}

// ringInside reports whether the open ring inner lies inside the open ring
// outer, by majority vote over sample points.
func ringInside(inner, outer []geom.Coord) bool {
	flat := make([]float64, 0, 2*len(outer)+2)
	for _, c := range closeRing(outer) {
		flat = append(flat, c[0], c[1])
	}
	votes := 0
	pts := samplePoints(inner)
	for _, p := range pts {
		if xy.LocatePointInRing(geom.XY, p, flat) == location.Interior {
			votes++
		}
	}
	return votes*2 > len(pts)
}

func orientation(a, b, c geom.Coord) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// segmentsCross reports a proper crossing between segments ab and cd.
// Touching at endpoints and collinear overlap do not count.
func segmentsCross(a, b, c, d geom.Coord) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

type segment struct {
	a, b                   geom.Coord
	minX, minY, maxX, maxY float64
}

func ringSegments(ring []geom.Coord) []segment {
	n := len(ring)
	segs := make([]segment, 0, n)
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		segs = append(segs, segment{
			a: a, b: b,
			minX: min(a[0], b[0]), maxX: max(a[0], b[0]),
			minY: min(a[1], b[1]), maxY: max(a[1], b[1]),
		})
	}
	return segs
}

// hasCrossings reports whether any two edges of the given open rings properly
// cross, which is the condition that forces a full repair pass.
func hasCrossings(rings [][]geom.Coord) bool {
	var segs []segment
	for _, r := range rings {
		segs = append(segs, ringSegments(r)...)
	}
	for i := 0; i < len(segs); i++ {
		s := segs[i]
		for j := i + 1; j < len(segs); j++ {
			t := segs[j]
			if s.maxX < t.minX || t.maxX < s.minX || s.maxY < t.minY || t.maxY < s.minY {
				continue
			}
			if segmentsCross(s.a, s.b, t.a, t.b) {
				return true
			}
		}
	}
	return false
}

// crossing returns the point where segments ab and cd properly cross, with its
// parameter along each segment.
func crossing(a, b, c, d geom.Coord) (t, u float64, pt geom.Coord) {
	o3, o4 := orientation(c, d, a), orientation(c, d, b)
	o1, o2 := orientation(a, b, c), orientation(a, b, d)
	t = o3 / (o3 - o4)
	u = o1 / (o1 - o2)
	pt = geom.Coord{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
	return t, u, pt
}

type cut struct {
	t  float64
	pt geom.Coord
}

// node inserts a vertex at every proper self-crossing of an open ring and
// splits the ring at repeated vertices. The returned loops are simple and meet
// only at shared vertices.
func node(ring []geom.Coord) [][]geom.Coord {
	segs := ringSegments(ring)
	cuts := make([][]cut, len(segs))
	for i := 0; i < len(segs); i++ {
		s := segs[i]
		for j := i + 1; j < len(segs); j++ {
			e := segs[j]
			if s.maxX < e.minX || e.maxX < s.minX || s.maxY < e.minY || e.maxY < s.minY {
				continue
			}
			if !segmentsCross(s.a, s.b, e.a, e.b) {
				continue
			}
			t, u, pt := crossing(s.a, s.b, e.a, e.b)
			cuts[i] = append(cuts[i], cut{t: t, pt: pt})
			cuts[j] = append(cuts[j], cut{t: u, pt: pt})
		}
	}

	noded := make([]geom.Coord, 0, len(ring))
	for i, c := range ring {
		noded = append(noded, c)
		cs := cuts[i]
		sort.Slice(cs, func(a, b int) bool { return cs[a].t < cs[b].t })
		for _, k := range cs {
			noded = append(noded, k.pt)
		}
	}
	return splitLoops(openRing(noded))
}

// splitLoops cuts an open ring into simple loops wherever it revisits a vertex.
func splitLoops(ring []geom.Coord) [][]geom.Coord {
	var loops [][]geom.Coord
	stack := make([]geom.Coord, 0, len(ring))
	seen := make(map[[2]float64]int, len(ring))
	for _, c := range ring {
		k := [2]float64{c[0], c[1]}
		if at, ok := seen[k]; ok {
			loops = append(loops, append([]geom.Coord(nil), stack[at:]...))
			for _, p := range stack[at+1:] {
				delete(seen, [2]float64{p[0], p[1]})
			}
			stack = stack[:at+1]
			continue
		}
		seen[k] = len(stack)
		stack = append(stack, c)
	}
	return append(loops, stack)
}
