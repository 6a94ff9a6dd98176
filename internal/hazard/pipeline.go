// Package hazard runs the end-to-end pipeline that turns a scenario into a
// HazardResult: land mask, footprint, clip, zone intersection and generated
// subzones.
package hazard

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/footprint"
	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/landmask"
	"github.com/sells-group/hazard-cli/internal/model"
	"github.com/sells-group/hazard-cli/internal/partition"
)

// Options configure a Pipeline. Zero fields of DensityPerKm2, CutoffMin and
// TargetKm2 fall back to the model defaults.
type Options struct {
	DataDir       string
	ClipDensifyKm float64
	LandMarginKm  float64
	AOIPadKm      float64
	Footprint     footprint.Options
	Policy        partition.Policy

	// Fallbacks for scenarios that leave these unset.
	DensityPerKm2 float64
	CutoffMin     int
	TargetKm2     float64
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		ClipDensifyKm: 0.05,
		LandMarginKm:  landmask.DefaultMarginKm,
		AOIPadKm:      2,
		Footprint:     footprint.DefaultOptions(),
		Policy:        partition.DefaultPolicy(),
		DensityPerKm2: model.DefaultDensityPerKm2,
		CutoffMin:     model.DefaultCutoffMin,
		TargetKm2:     model.DefaultTargetKm2,
	}
}

// Pipeline is safe for concurrent use; each Run needs its own rng.
type Pipeline struct {
	opts        Options
	resolver    *landmask.Resolver
	partitioner *partition.Partitioner
	metrics     *Metrics
}

// New creates a Pipeline. metrics may be nil.
func New(opts Options, metrics *Metrics) *Pipeline {
	return &Pipeline{
		opts: opts,
		resolver: landmask.New(
			landmask.WithMarginKm(opts.LandMarginKm),
			landmask.WithAreaOfInterestPadKm(opts.AOIPadKm),
		),
		partitioner: partition.New(opts.Policy),
		metrics:     metrics,
	}
}

// NewRNG returns the deterministic random source used for a run seed.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Run executes the pipeline for s. prev, when non-nil, is the previous result
// for the same scenario; the new result's version is prev.Version+1. A
// scenario without an anchor, or whose footprint misses the land mask, yields
// a result with a nil Impact rather than an error. Malformed geometry fails
// with a *geo.GeometryError.
func (p *Pipeline) Run(ctx context.Context, s *model.Scenario, prev *model.HazardResult, rng *rand.Rand) (*model.HazardResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := zap.L().With(zap.String("component", "hazard"), zap.String("location", s.Location.Name))

	res := model.NewHazardResult()
	res.Version = 1
	if prev != nil {
		res.Version = prev.Version + 1
	}

	outcome, err := p.run(s, rng, res, log)
	if err != nil {
		p.observe(OutcomeFailed, "", start, nil)
		return nil, err
	}
	p.observe(outcome, res.LandMaskSource, start, res)

	fields := []zap.Field{
		zap.Int("version", res.Version),
		zap.String("outcome", outcome),
		zap.Int("impact_population_total", res.ImpactPopulationTotal),
		zap.Int("generated_zones", len(res.GeneratedZones)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if prev != nil {
		fields = append(fields,
			zap.Int("population_delta", res.ImpactPopulationTotal-prev.ImpactPopulationTotal),
			zap.Int("generated_zones_delta", len(res.GeneratedZones)-len(prev.GeneratedZones)),
		)
	}
	log.Info("hazard run complete", fields...)
	return res, nil
}

func (p *Pipeline) run(s *model.Scenario, rng *rand.Rand, res *model.HazardResult, log *zap.Logger) (string, error) {
	mask, src, err := p.resolver.Resolve(s, p.opts.DataDir)
	if err != nil {
		return "", err
	}
	res.LandMaskSource = string(src)
	log.Debug("land mask resolved", zap.String("source", string(src)))

	blob, err := footprint.Synthesize(footprint.SeedFromScenario(s), rng, p.opts.Footprint)
	if errors.Is(err, footprint.ErrMissingAnchor) {
		log.Info("scenario has no anchor; no impact")
		return OutcomeNoAnchor, nil
	}
	if err != nil {
		return "", err
	}

	clipped, err := footprint.Clip(blob, mask)
	if errors.Is(err, footprint.ErrDegenerateIntersection) {
		log.Info("footprint does not reach land; no impact")
		return OutcomeNoLand, nil
	}
	if err != nil {
		return "", err
	}

	fp, err := geo.Densify(clipped, p.opts.ClipDensifyKm)
	if err != nil {
		return "", err
	}
	if geo.IsEmpty(fp) {
		return OutcomeNoLand, nil
	}
	res.Footprint = fp
	res.Impact = impactCollection(fp)

	defaultCutoff := p.cutoff(s)
	zi := IntersectZones(s.Zones, fp, res.Cutoffs, defaultCutoff, p.opts.Policy)
	res.ImpactByZone = zi.ByZone
	res.ImpactPopulationTotal = zi.Total
	res.GeoJSON.Features = append(res.GeoJSON.Features, zi.Features...)

	subzones, err := p.partitioner.Partition(fp, partition.Request{
		TargetKm2:     p.target(s),
		Count:         s.AutoSubzones.Count,
		DensityPerKm2: p.density(s),
		CutoffMin:     defaultCutoff,
	}, rng)
	if err != nil {
		return "", err
	}
	Merge(res, subzones)
	return OutcomeImpact, nil
}

func (p *Pipeline) cutoff(s *model.Scenario) int {
	if s.Defaults.CutoffMin > 0 || p.opts.CutoffMin <= 0 {
		return s.Defaults.Cutoff()
	}
	return p.opts.CutoffMin
}

func (p *Pipeline) density(s *model.Scenario) float64 {
	if s.Defaults.DensityPerKm2 > 0 || p.opts.DensityPerKm2 <= 0 {
		return s.Defaults.Density()
	}
	return p.opts.DensityPerKm2
}

func (p *Pipeline) target(s *model.Scenario) float64 {
	if s.AutoSubzones.TargetKm2 > 0 || p.opts.TargetKm2 <= 0 {
		return s.AutoSubzones.Target()
	}
	return p.opts.TargetKm2
}

func (p *Pipeline) observe(outcome, source string, start time.Time, res *model.HazardResult) {
	if p.metrics == nil {
		return
	}
	m := p.metrics
	m.Runs.WithLabelValues(outcome).Inc()
	m.Duration.Observe(time.Since(start).Seconds())
	if source != "" {
		m.LandMaskSources.WithLabelValues(source).Inc()
	}
	if res == nil {
		return
	}
	m.AffectedTotal.Set(float64(res.ImpactPopulationTotal))
	if res.HasImpact() {
		m.Subzones.Observe(float64(len(res.GeneratedZones)))
		m.FootprintAreaKm2.Set(geo.AreaKm2(res.Footprint, geo.CentroidLatitude(res.Footprint)))
	} else {
		m.FootprintAreaKm2.Set(0)
	}
}

// impactCollection wraps the footprint in a one-feature collection tagged
// {type: impact}.
func impactCollection(fp *geom.MultiPolygon) *geojson.FeatureCollection {
	return &geojson.FeatureCollection{Features: []*geojson.Feature{{
		Geometry:   singleOrMulti(fp),
		Properties: map[string]interface{}{"type": "impact"},
	}}}
}
