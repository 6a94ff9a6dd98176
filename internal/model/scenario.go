// Package model holds the scenario input and hazard result types shared by the
// pipeline, the store and the CLI.
package model

import (
	"encoding/json"
)

// Defaults applied when a scenario leaves a field unset.
const (
	DefaultRadiusKm      = 5.0
	DefaultLobes         = 5
	DefaultJitter        = 0.3
	DefaultTargetKm2     = 0.6
	DefaultDensityPerKm2 = 4000.0
	DefaultCutoffMin     = 60
	DefaultBaselineRisk  = 0.3
)

// Scenario is one uploaded event description.
type Scenario struct {
	Location     Location          `json:"location"`
	Event        Event             `json:"event"`
	Zones        []PlanningZone    `json:"zones"`
	Shelters     []json.RawMessage `json:"shelters,omitempty"`
	ImpactSeed   ImpactSeed        `json:"impact_seed"`
	AutoSubzones AutoSubzones      `json:"auto_subzones"`
	Defaults     Defaults          `json:"defaults"`
	LandMask     json.RawMessage   `json:"land_mask,omitempty"`
}

// Location names the event area. Center is [lon, lat].
type Location struct {
	Name   string    `json:"name,omitempty"`
	Center []float64 `json:"center,omitempty"`
}

// Event describes the hazard itself.
type Event struct {
	Type   string `json:"type,omitempty"`
	EtaMin int    `json:"eta_min,omitempty"`
}

// PlanningZone is an authored operational zone.
type PlanningZone struct {
	ID           string      `json:"id"`
	Name         string      `json:"name,omitempty"`
	Population   int         `json:"population"`
	BaselineRisk *float64    `json:"baseline_risk,omitempty"`
	CutoffMin    int         `json:"cutoff_min,omitempty"`
	Polygon      [][]float64 `json:"polygon,omitempty"`
	Centroid     []float64   `json:"centroid,omitempty"`
}

// Baseline returns the zone's baseline risk, DefaultBaselineRisk when unset.
func (z PlanningZone) Baseline() float64 {
	if z.BaselineRisk == nil {
		return DefaultBaselineRisk
	}
	return *z.BaselineRisk
}

// Cutoff returns the zone's cutoff in minutes, or def when unset.
func (z PlanningZone) Cutoff(def int) int {
	if z.CutoffMin > 0 {
		return z.CutoffMin
	}
	return def
}

// ImpactSeed parameterises the synthesized footprint. Anchor and
// CoastlineAnchor are [lon, lat]; the first one present wins.
type ImpactSeed struct {
	Anchor          []float64 `json:"anchor,omitempty"`
	CoastlineAnchor []float64 `json:"coastline_anchor,omitempty"`
	RadiusKm        *float64  `json:"radius_km,omitempty"`
	Lobes           *int      `json:"lobes,omitempty"`
	Jitter          *float64  `json:"jitter,omitempty"`
}

// AutoSubzones configures generated subzones.
type AutoSubzones struct {
	TargetKm2  float64 `json:"target_km2,omitempty"`
	Count      int     `json:"count,omitempty"`
	RouteEvery int     `json:"route_every,omitempty"`
}

// Defaults are scenario-wide fallbacks for generated subzones.
type Defaults struct {
	DensityPerKm2 float64 `json:"density_per_km2,omitempty"`
	CutoffMin     int     `json:"cutoff_min,omitempty"`
}

// AnchorPoint resolves the footprint anchor: impact_seed.anchor, then
// impact_seed.coastline_anchor, then location.center. ok is false when none is
// a usable [lon, lat] pair.
func (s *Scenario) AnchorPoint() (lon, lat float64, ok bool) {
	for _, c := range [][]float64{s.ImpactSeed.Anchor, s.ImpactSeed.CoastlineAnchor, s.Location.Center} {
		if len(c) >= 2 {
			return c[0], c[1], true
		}
	}
	return 0, 0, false
}

// Radius returns impact_seed.radius_km or DefaultRadiusKm.
func (s ImpactSeed) Radius() float64 {
	if s.RadiusKm == nil {
		return DefaultRadiusKm
	}
	return *s.RadiusKm
}

// LobeCount returns impact_seed.lobes or DefaultLobes.
func (s ImpactSeed) LobeCount() int {
	if s.Lobes == nil {
		return DefaultLobes
	}
	return *s.Lobes
}

// JitterAmount returns impact_seed.jitter or DefaultJitter.
func (s ImpactSeed) JitterAmount() float64 {
	if s.Jitter == nil {
		return DefaultJitter
	}
	return *s.Jitter
}

// Target returns auto_subzones.target_km2 or DefaultTargetKm2.
func (a AutoSubzones) Target() float64 {
	if a.TargetKm2 > 0 {
		return a.TargetKm2
	}
	return DefaultTargetKm2
}

// Density returns defaults.density_per_km2 or DefaultDensityPerKm2.
func (d Defaults) Density() float64 {
	if d.DensityPerKm2 > 0 {
		return d.DensityPerKm2
	}
	return DefaultDensityPerKm2
}

// Cutoff returns defaults.cutoff_min or DefaultCutoffMin.
func (d Defaults) Cutoff() int {
	if d.CutoffMin > 0 {
		return d.CutoffMin
	}
	return DefaultCutoffMin
}
