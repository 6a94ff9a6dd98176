package partition

// vec is a point or direction in the local kilometre frame.
type vec struct{ X, Y float64 }

func (p vec) Add(q vec) vec       { return vec{p.X + q.X, p.Y + q.Y} }
func (p vec) Sub(q vec) vec       { return vec{p.X - q.X, p.Y - q.Y} }
func (p vec) Scale(s float64) vec { return vec{p.X * s, p.Y * s} }
func (p vec) Dot(q vec) float64   { return p.X*q.X + p.Y*q.Y }

func (p vec) near(q vec, eps float64) bool {
	d := p.Sub(q)
	return d.Dot(d) <= eps*eps
}

func midpoint(p, q vec) vec {
	return vec{(p.X + q.X) / 2, (p.Y + q.Y) / 2}
}

// voronoiCells returns the Voronoi cell of every seed, bounded by the convex
// polygon bounds. Cell i is bounds clipped, for each other seed j, to the half
// plane of points at least as close to seed i as to seed j. Cells may be empty
// for seeds outside bounds.
func voronoiCells(seeds []vec, bounds []vec) [][]vec {
	cells := make([][]vec, len(seeds))
	for i, s := range seeds {
		cell := bounds
		for j, other := range seeds {
			if i == j {
				continue
			}
			cell = clipHalfPlane(cell, s, other)
			if len(cell) < 3 {
				cell = nil
				break
			}
		}
		cells[i] = cell
	}
	return cells
}

// clipHalfPlane keeps the part of the convex polygon poly that is at least as
// close to s as to o (Sutherland-Hodgman against the perpendicular bisector).
func clipHalfPlane(poly []vec, s, o vec) []vec {
	if len(poly) == 0 {
		return nil
	}
	mid := midpoint(s, o)
	dir := o.Sub(s)
	side := func(p vec) float64 { return dir.Dot(p.Sub(mid)) }

	out := make([]vec, 0, len(poly)+1)
	n := len(poly)
	for i := 0; i < n; i++ {
		cur, next := poly[i], poly[(i+1)%n]
		dc, dn := side(cur), side(next)
		curIn, nextIn := dc <= 0, dn <= 0

		switch {
		case curIn && nextIn:
			out = append(out, next)
		case curIn && !nextIn:
			out = append(out, cur.Add(next.Sub(cur).Scale(dc/(dc-dn))))
		case !curIn && nextIn:
			out = append(out, cur.Add(next.Sub(cur).Scale(dc/(dc-dn))), next)
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// dedupe drops seeds within eps of an earlier one. Coincident seeds have no
// bisector.
func dedupe(pts []vec, eps float64) []vec {
	out := make([]vec, 0, len(pts))
	for _, p := range pts {
		dup := false
		for _, q := range out {
			if p.near(q, eps) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
