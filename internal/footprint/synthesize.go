// Package footprint synthesizes the impact boundary of a hazard event and clips
// it to land.
package footprint

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/model"
)

// ErrMissingAnchor is returned when no anchor point can be resolved for the
// footprint. Callers treat it as "no impact" rather than a failure.
var ErrMissingAnchor = eris.New("footprint: no anchor point")

// Seed parameterises one footprint.
type Seed struct {
	Anchor   *geom.Coord
	RadiusKm float64
	Lobes    int
	Jitter   float64
}

// SeedFromScenario reads the seed from impact_seed, applying defaults and the
// anchor fallback chain.
func SeedFromScenario(s *model.Scenario) Seed {
	seed := Seed{
		RadiusKm: s.ImpactSeed.Radius(),
		Lobes:    s.ImpactSeed.LobeCount(),
		Jitter:   s.ImpactSeed.JitterAmount(),
	}
	if lon, lat, ok := s.AnchorPoint(); ok {
		seed.Anchor = &geom.Coord{lon, lat}
	}
	return seed
}

// Options tune the blob shape.
type Options struct {
	// Phase offsets the lobe pattern, in radians.
	Phase float64
	// BufferKm inflates the repaired blob. Zero disables it.
	BufferKm float64
}

// DefaultOptions returns the standard blob shape.
func DefaultOptions() Options {
	return Options{Phase: 0.7}
}

// Steps returns the number of boundary samples used for a seed.
func Steps(lobes int) int {
	return max(36, lobes*24)
}

// Synthesize builds the organic impact blob for seed. The ring is sampled at
// Steps(lobes) evenly spaced angles; at angle t the radius is scaled by
//
//	1 + jitter*0.5*sin(lobes*t + phase) + jitter*0.3*U(-1, 1)
//
// with U drawn from rng. Identically seeded generators give identical
// footprints. A nil anchor yields ErrMissingAnchor; other invalid seeds yield a
// *geo.GeometryError on "impact_seed".
func Synthesize(seed Seed, rng *rand.Rand, opts Options) (*geom.MultiPolygon, error) {
	if seed.Anchor == nil {
		return nil, ErrMissingAnchor
	}
	if err := validateSeed(seed); err != nil {
		return nil, err
	}

	lon, lat := (*seed.Anchor)[0], (*seed.Anchor)[1]
	r := geo.KmToDegrees(seed.RadiusKm)
	steps := Steps(seed.Lobes)
	lobes := float64(seed.Lobes)

	ring := make([]geom.Coord, 0, steps+1)
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		u := rng.Float64()*2 - 1
		m := 1 + seed.Jitter*0.5*math.Sin(lobes*t+opts.Phase) + seed.Jitter*0.3*u
		rr := r * m
		ring = append(ring, geom.Coord{lon + rr*math.Cos(t), lat + rr*math.Sin(t)})
	}

	p, err := geo.NewPolygonFromRings("impact_seed", [][]geom.Coord{ring})
	if err != nil {
		return nil, err
	}
	blob, err := geo.Buffer(geo.FromPolygons(p), opts.BufferKm)
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(blob) {
		return nil, &geo.GeometryError{Entity: "impact_seed", Reason: "footprint collapsed to nothing"}
	}
	return blob, nil
}

func validateSeed(seed Seed) error {
	a := *seed.Anchor
	switch {
	case len(a) < 2 || math.IsNaN(a[0]) || math.IsNaN(a[1]) || math.IsInf(a[0], 0) || math.IsInf(a[1], 0):
		return &geo.GeometryError{Entity: "impact_seed", Reason: "anchor is not a finite coordinate"}
	case a[1] < -90 || a[1] > 90:
		return &geo.GeometryError{Entity: "impact_seed", Reason: "anchor latitude out of range"}
	case !(seed.RadiusKm > 0) || math.IsInf(seed.RadiusKm, 0):
		return &geo.GeometryError{Entity: "impact_seed", Reason: "radius_km must be positive"}
	case seed.Lobes < 0:
		return &geo.GeometryError{Entity: "impact_seed", Reason: "lobes must not be negative"}
	case seed.Jitter < 0 || math.IsNaN(seed.Jitter) || math.IsInf(seed.Jitter, 0):
		return &geo.GeometryError{Entity: "impact_seed", Reason: "jitter must be a non-negative number"}
	}
	return nil
}
