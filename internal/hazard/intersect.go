package hazard

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/geo"
	"github.com/sells-group/hazard-cli/internal/model"
	"github.com/sells-group/hazard-cli/internal/partition"
)

// ZoneImpacts is the intersector's output for the authored zones.
type ZoneImpacts struct {
	ByZone   map[string]model.ZoneImpact
	Total    int
	Features []*geojson.Feature
}

// IntersectZones measures how much of each authored zone lies inside
// footprint. The cutoff of every zone is written to cutoffs, defaulting to
// defaultCutoff. Only zones with a non-empty intersection are reported and
// emitted as features; zones without a polygon contribute nothing, and zones
// with a malformed polygon are logged and skipped.
func IntersectZones(zones []model.PlanningZone, footprint *geom.MultiPolygon, cutoffs map[string]int, defaultCutoff int, policy partition.Policy) ZoneImpacts {
	log := zap.L().With(zap.String("component", "intersect"))
	out := ZoneImpacts{ByZone: map[string]model.ZoneImpact{}, Features: []*geojson.Feature{}}

	for _, z := range zones {
		cutoffs[z.ID] = z.Cutoff(defaultCutoff)

		if len(z.Polygon) == 0 || geo.IsEmpty(footprint) {
			continue
		}
		zp, err := zonePolygon(z)
		if err != nil {
			log.Warn("skipping malformed zone", zap.String("zone", z.ID), zap.Error(err))
			continue
		}
		inter, err := geo.Intersect(zp, footprint)
		if err != nil {
			log.Warn("zone intersection failed", zap.String("zone", z.ID), zap.Error(err))
			continue
		}
		interArea := geo.Area(inter)
		if geo.IsEmpty(inter) || interArea <= 0 {
			continue
		}

		fraction := 0.0
		if zoneArea := geo.Area(zp); zoneArea > 0 {
			fraction = clampFraction(interArea / zoneArea)
		}
		affected := int(math.Round(fraction * float64(z.Population)))

		out.ByZone[z.ID] = model.ZoneImpact{
			Population:     z.Population,
			AffectedEst:    affected,
			ImpactFraction: fraction,
		}
		out.Total += affected

		severity := z.Baseline()
		out.Features = append(out.Features, &geojson.Feature{
			ID:       z.ID,
			Geometry: singleOrMulti(zp),
			Properties: map[string]interface{}{
				"zone":      z.ID,
				"name":      z.Name,
				"severity":  severity,
				"risk_band": string(policy.Band(severity)),
			},
		})
	}
	return out
}

// Merge folds generated subzones into res. Each subzone counts as fully
// impacted, so res.ImpactPopulationTotal stays the sum of every affected_est.
func Merge(res *model.HazardResult, subzones []model.GeneratedSubzone) {
	log := zap.L().With(zap.String("component", "intersect"))
	for _, sz := range subzones {
		if _, dup := res.ImpactByZone[sz.ID]; dup {
			log.Warn("generated subzone shadows an authored zone id", zap.String("zone", sz.ID))
			res.ImpactPopulationTotal -= res.ImpactByZone[sz.ID].AffectedEst
		}
		res.ImpactByZone[sz.ID] = model.ZoneImpact{
			Population:     sz.Population,
			AffectedEst:    sz.Population,
			ImpactFraction: 1,
		}
		res.ImpactPopulationTotal += sz.Population
		res.Cutoffs[sz.ID] = sz.CutoffMin
		res.GeneratedZones = append(res.GeneratedZones, sz)

		f := &geojson.Feature{
			ID: sz.ID,
			Properties: map[string]interface{}{
				"zone":      sz.ID,
				"name":      sz.Name,
				"generated": true,
				"risk":      sz.Risk,
				"risk_band": string(sz.RiskBand),
			},
		}
		if p, err := geo.NewPolygon(sz.ID, sz.Polygon); err == nil {
			f.Geometry = p
		}
		res.GeoJSON.Features = append(res.GeoJSON.Features, f)
	}
}

// zonePolygon builds and repairs an authored zone polygon.
func zonePolygon(z model.PlanningZone) (*geom.MultiPolygon, error) {
	p, err := geo.NewPolygon("zone "+z.ID, z.Polygon)
	if err != nil {
		return nil, err
	}
	mp, err := geo.Repair(geo.FromPolygons(p))
	if err != nil {
		return nil, err
	}
	if geo.IsEmpty(mp) {
		return nil, &geo.GeometryError{Entity: "zone " + z.ID, Reason: "polygon has no area"}
	}
	return mp, nil
}

// singleOrMulti returns the lone polygon of a one-member multipolygon.
func singleOrMulti(mp *geom.MultiPolygon) geom.T {
	if mp.NumPolygons() == 1 {
		return mp.Polygon(0)
	}
	return mp
}

func clampFraction(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
