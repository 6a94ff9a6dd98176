// Package landmask resolves the land polygon a hazard footprint is clipped to.
package landmask

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/model"
)

// Source identifies which input produced a land mask.
type Source string

const (
	SourceScenario  Source = "scenario"
	SourceCoastline Source = "coastline_cache"
	SourceZones     Source = "zone_union"
	SourceNone      Source = "none"
)

// Cache file names looked up in the data directory, in order.
const (
	CoastlineGeoJSON   = "ne_50m_land.geojson"
	CoastlineShapefile = "ne_50m_land.shp"
)

// DefaultMarginKm inflates the zone union so that small gaps between adjacent
// authored zones do not cut the footprint.
const DefaultMarginKm = 0.08

// Resolver picks the land mask for a scenario. The zero value is not usable;
// construct with New.
type Resolver struct {
	marginKm float64
	aoiPadKm float64
	log      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMarginKm sets the inflation applied to the zone union.
func WithMarginKm(km float64) Option {
	return func(r *Resolver) { r.marginKm = km }
}

// WithAreaOfInterestPadKm sets how far beyond the largest possible footprint
// coastline features are still considered. Zero disables the filter.
func WithAreaOfInterestPadKm(km float64) Option {
	return func(r *Resolver) { r.aoiPadKm = km }
}

// New returns a Resolver with the default margin and area-of-interest padding.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		marginKm: DefaultMarginKm,
		aoiPadKm: 2,
		log:      zap.L().With(zap.String("component", "landmask")),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the land mask for s and the source it came from. Sources are
// tried in a fixed order: the scenario's embedded land_mask, the coastline
// cache in dataDir, then the union of authored zone polygons. A nil geometry
// with SourceNone means no source is available and the footprint should be used
// unclipped. A malformed land_mask feature fails the call with a
// *geo.GeometryError naming the feature.
func (r *Resolver) Resolve(s *model.Scenario, dataDir string) (*geom.MultiPolygon, Source, error) {
	mask, err := r.fromScenario(s)
	if err != nil {
		return nil, SourceNone, err
	}
	if mask != nil {
		r.log.Debug("land mask from scenario", zap.Int("polygons", mask.NumPolygons()))
		return mask, SourceScenario, nil
	}

	if dataDir != "" {
		if mask := r.fromCache(dataDir, r.areaOfInterest(s)); mask != nil {
			r.log.Debug("land mask from coastline cache", zap.Int("polygons", mask.NumPolygons()))
			return mask, SourceCoastline, nil
		}
	}

	mask, err = r.fromZones(s.Zones)
	if err != nil {
		return nil, SourceNone, err
	}
	if mask != nil {
		r.log.Debug("land mask from zone union", zap.Int("polygons", mask.NumPolygons()))
		return mask, SourceZones, nil
	}
	return nil, SourceNone, nil
}

// fromScenario unions the polygonal features of the embedded feature
// collection. Nil means the scenario carries no usable mask.
func (r *Resolver) fromScenario(s *model.Scenario) (*geom.MultiPolygon, error) {
	raw := bytes.TrimSpace(s.LandMask)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, &geo.GeometryError{Entity: "land_mask", Reason: err.Error()}
	}

	var parts []*geom.MultiPolygon
	for i, rawFeature := range fc.Features {
		entity := fmt.Sprintf("land_mask.features[%d]", i)
		var f geojson.Feature
		if err := json.Unmarshal(rawFeature, &f); err != nil {
			return nil, &geo.GeometryError{Entity: entity, Reason: err.Error()}
		}
		mp, ok := polygonal(f.Geometry)
		if !ok {
			continue
		}
		if err := geo.Validate(entity, mp); err != nil {
			return nil, err
		}
		parts = append(parts, mp)
	}
	return unionNonEmpty(parts)
}

// fromZones unions every well-formed zone polygon and inflates the result.
// Malformed zones are logged and left out.
func (r *Resolver) fromZones(zones []model.PlanningZone) (*geom.MultiPolygon, error) {
	var parts []*geom.MultiPolygon
	for _, z := range zones {
		if len(z.Polygon) == 0 {
			continue
		}
		p, err := geo.NewPolygon("zone "+z.ID, z.Polygon)
		if err != nil {
			r.log.Warn("skipping malformed zone polygon", zap.String("zone", z.ID), zap.Error(err))
			continue
		}
		parts = append(parts, geo.FromPolygons(p))
	}
	u, err := unionNonEmpty(parts)
	if err != nil || u == nil {
		return nil, err
	}
	buffered, err := geo.Buffer(u, r.marginKm)
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(buffered) {
		return nil, nil
	}
	return buffered, nil
}

// areaOfInterest bounds the largest footprint the seed could produce, padded.
// Nil disables filtering.
func (r *Resolver) areaOfInterest(s *model.Scenario) *geom.Bounds {
	if r.aoiPadKm <= 0 {
		return nil
	}
	lon, lat, ok := s.AnchorPoint()
	if !ok || math.IsNaN(lon) || math.IsNaN(lat) {
		return nil
	}
	seed := s.ImpactSeed
	reachKm := seed.Radius()*(1+0.8*math.Abs(seed.JitterAmount())) + r.aoiPadKm
	m := geo.MetricAt(lat)
	if m.KmPerDegLon <= 0 {
		return nil
	}
	dx, dy := reachKm/m.KmPerDegLon, reachKm/m.KmPerDegLat
	return geom.NewBounds(geom.XY).Set(lon-dx, lat-dy, lon+dx, lat+dy)
}

func polygonal(g geom.T) (*geom.MultiPolygon, bool) {
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		mp, ok := geo.AsMultiPolygon(g)
		return mp, ok && !geo.IsEmpty(mp)
	default:
		return nil, false
	}
}

func unionNonEmpty(parts []*geom.MultiPolygon) (*geom.MultiPolygon, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	u, err := geo.Union(parts...)
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(u) {
		return nil, nil
	}
	return u, nil
}
