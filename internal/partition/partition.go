package partition

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/model"
)

// Request describes the subzones wanted for one footprint.
type Request struct {
	TargetKm2     float64
	Count         int // fixed cell count; zero derives it from TargetKm2
	DensityPerKm2 float64
	CutoffMin     int
}

// Partitioner generates subzones. It holds no per-run state and is safe for
// concurrent use as long as each call gets its own rng.
type Partitioner struct {
	policy Policy
	log    *zap.Logger
}

// New returns a Partitioner using policy.
func New(policy Policy) *Partitioner {
	return &Partitioner{
		policy: policy,
		log:    zap.L().With(zap.String("component", "partition")),
	}
}

// Policy returns the partitioner's constants.
func (p *Partitioner) Policy() Policy { return p.policy }

// Partition splits footprint into relaxed Voronoi cells of roughly
// req.TargetKm2 each and returns the cells that survive the sliver filter,
// numbered auto-1, auto-2, ... in output order. Cells are shared between the
// footprint's components in proportion to their area. A nil or empty footprint
// yields no subzones.
func (p *Partitioner) Partition(footprint *geom.MultiPolygon, req Request, rng *rand.Rand) ([]model.GeneratedSubzone, error) {
	out := []model.GeneratedSubzone{}
	if geo.IsEmpty(footprint) {
		return out, nil
	}
	if !(req.TargetKm2 > 0) {
		return nil, eris.Errorf("partition: target area %v km² must be positive", req.TargetKm2)
	}
	if req.DensityPerKm2 < 0 || math.IsNaN(req.DensityPerKm2) {
		return nil, eris.Errorf("partition: density %v must not be negative", req.DensityPerKm2)
	}

	comps := geo.Polygons(footprint)
	areas := make([]float64, len(comps))
	total := 0.0
	for i, c := range comps {
		areas[i] = geo.PolygonAreaKm2(c)
		total += areas[i]
	}

	n := req.Count
	if n <= 0 {
		n = int(math.Round(total / req.TargetKm2))
	}
	n = max(n, 1)
	if p.policy.MaxCells > 0 && n > p.policy.MaxCells {
		p.log.Warn("cell count capped", zap.Int("requested", n), zap.Int("max", p.policy.MaxCells))
		n = p.policy.MaxCells
	}

	minKm2 := p.policy.DiscardFraction * req.TargetKm2
	var cells []*geom.Polygon
	for i, c := range comps {
		// A component smaller than the discard threshold cannot yield a cell.
		if areas[i] < minKm2 {
			continue
		}
		share := max(1, int(math.Round(float64(n)*areas[i]/total)))
		cs, err := p.partitionComponent(c, share, rng)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cs...)
	}

	discarded := 0
	for _, cell := range cells {
		km2 := geo.PolygonAreaKm2(cell)
		if km2 < minKm2 {
			discarded++
			continue
		}
		out = append(out, p.describe(cell, km2, len(out)+1, footprint, req))
	}

	p.log.Debug("footprint partitioned",
		zap.Int("target_cells", n),
		zap.Int("cells", len(cells)),
		zap.Int("discarded", discarded),
		zap.Int("subzones", len(out)),
	)
	return out, nil
}

// describe annotates one surviving cell with population and risk.
func (p *Partitioner) describe(cell *geom.Polygon, km2 float64, label int, footprint *geom.MultiPolygon, req Request) model.GeneratedSubzone {
	rp := geo.RepresentativePoint(cell)
	pop := int(math.Round(km2 * req.DensityPerKm2))
	density := float64(pop) / math.Max(km2, 1e-6)
	dist := geo.NearestBoundaryDistanceKm(footprint, rp)
	risk := p.policy.Risk(dist, density)

	return model.GeneratedSubzone{
		ID:            fmt.Sprintf("auto-%d", label),
		Name:          fmt.Sprintf("Impact Subzone %d", label),
		Label:         label,
		Polygon:       geo.ExteriorCoords(cell),
		Centroid:      []float64{rp[0], rp[1]},
		Population:    pop,
		DensityPerKm2: int(density),
		AreaKm2:       math.Round(km2*10000) / 10000,
		CutoffMin:     req.CutoffMin,
		Risk:          risk,
		RiskBand:      p.policy.Band(risk),
		Generated:     true,
	}
}

// partitionComponent runs seeding, Lloyd relaxation and the final Voronoi cut
// on a single footprint polygon.
func (p *Partitioner) partitionComponent(comp *geom.Polygon, n int, rng *rand.Rand) ([]*geom.Polygon, error) {
	dense, err := geo.Densify(geo.FromPolygons(comp), p.policy.SeedDensifyKm)
	if err != nil {
		return nil, err
	}
	main := geo.Largest(dense)
	if main == nil {
		main = comp
	}
	region := geo.FromPolygons(main)
	f := newFrame(main)
	bounds := f.bounds(region)

	pts := p.seeds(main, region, n, f, rng)
	for it := 0; it < p.policy.LloydIterations; it++ {
		pieces, err := clippedCells(pts, region, bounds, f)
		if err != nil {
			return nil, err
		}
		next := make([]vec, 0, len(pieces))
		for _, piece := range pieces {
			next = append(next, f.toLocal(geo.RepresentativePoint(piece)))
		}
		if len(next) > 0 {
			pts = dedupe(next, seedEpsKm)
		}
	}
	return clippedCells(pts, region, bounds, f)
}

// seedEpsKm is the distance under which two seeds are considered the same.
const seedEpsKm = 1e-6

// seeds returns stride-sampled exterior vertices, about n/2 of them, plus n
// interior points drawn by rejection sampling.
func (p *Partitioner) seeds(main *geom.Polygon, region *geom.MultiPolygon, n int, f frame, rng *rand.Rand) []vec {
	boundary := main.LinearRing(0).Coords()
	skip := max(1, len(boundary)/max(n/2, 1))

	pts := make([]vec, 0, len(boundary)/skip+n+1)
	for i := 0; i < len(boundary); i += skip {
		pts = append(pts, f.toLocal(boundary[i]))
	}
	for i := 0; i < n; i++ {
		pts = append(pts, f.toLocal(p.interiorPoint(main, region, rng)))
	}
	return dedupe(pts, seedEpsKm)
}

// interiorPoint draws uniform points in the bounding box of main until one
// falls inside, falling back to the representative point.
func (p *Partitioner) interiorPoint(main *geom.Polygon, region *geom.MultiPolygon, rng *rand.Rand) geom.Coord {
	b := main.Bounds()
	for try := 0; try < p.policy.InteriorRetries; try++ {
		c := geom.Coord{
			b.Min(0) + rng.Float64()*(b.Max(0)-b.Min(0)),
			b.Min(1) + rng.Float64()*(b.Max(1)-b.Min(1)),
		}
		if geo.Contains(region, c) {
			return c
		}
	}
	return geo.RepresentativePoint(main)
}

// clippedCells computes the Voronoi diagram of pts inside bounds and clips
// every cell to region, returning the resulting single polygons.
func clippedCells(pts []vec, region *geom.MultiPolygon, bounds []vec, f frame) ([]*geom.Polygon, error) {
	var out []*geom.Polygon
	for _, cell := range voronoiCells(pts, bounds) {
		if len(cell) < 3 {
			continue
		}
		ring := make([]geom.Coord, 0, len(cell)+1)
		for _, v := range cell {
			ring = append(ring, f.toDegrees(v))
		}
		poly, err := geo.NewPolygonFromRings("voronoi cell", [][]geom.Coord{ring})
		if err != nil {
			continue
		}
		clipped, err := geo.Intersect(geo.FromPolygons(poly), region)
		if err != nil {
			return nil, err
		}
		out = append(out, geo.Polygons(clipped)...)
	}
	return out, nil
}

// frame maps lon/lat to a local kilometre plane centred on a polygon, so that
// Voronoi bisectors are perpendicular on the ground.
type frame struct {
	origin geom.Coord
	m      geo.Metric
}

func newFrame(p *geom.Polygon) frame {
	c := geo.Centroid(p)
	return frame{origin: c, m: geo.MetricAt(c[1])}
}

func (f frame) toLocal(c geom.Coord) vec {
	return vec{(c[0] - f.origin[0]) * f.m.KmPerDegLon, (c[1] - f.origin[1]) * f.m.KmPerDegLat}
}

func (f frame) toDegrees(v vec) geom.Coord {
	return geom.Coord{f.origin[0] + v.X/f.m.KmPerDegLon, f.origin[1] + v.Y/f.m.KmPerDegLat}
}

// bounds returns the region's bounding box in the local frame, padded by its
// own larger side plus one kilometre, as a counter-clockwise rectangle.
func (f frame) bounds(region *geom.MultiPolygon) []vec {
	b := region.Bounds()
	lo := f.toLocal(geom.Coord{b.Min(0), b.Min(1)})
	hi := f.toLocal(geom.Coord{b.Max(0), b.Max(1)})
	pad := math.Max(hi.X-lo.X, hi.Y-lo.Y) + 1
	return []vec{
		{lo.X - pad, lo.Y - pad},
		{hi.X + pad, lo.Y - pad},
		{hi.X + pad, hi.Y + pad},
		{lo.X - pad, hi.Y + pad},
	}
}
