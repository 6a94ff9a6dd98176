package model

import (
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// RiskBand is the coarse classification of a risk score.
type RiskBand string

const (
	RiskBandRed    RiskBand = "red"
	RiskBandOrange RiskBand = "orange"
	RiskBandGreen  RiskBand = "green"
)

// GeneratedSubzone is a partition cell created for one run. Polygon is the
// closed exterior ring as [lon, lat] pairs.
type GeneratedSubzone struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Label         int         `json:"label"`
	Polygon       [][]float64 `json:"polygon"`
	Centroid      []float64   `json:"centroid"`
	Population    int         `json:"population"`
	DensityPerKm2 int         `json:"density_per_km2"`
	AreaKm2       float64     `json:"area_km2"`
	CutoffMin     int         `json:"cutoff_min"`
	Risk          float64     `json:"risk"`
	RiskBand      RiskBand    `json:"risk_band"`
	Generated     bool        `json:"generated"`
}

// ZoneImpact is the per-zone share of the footprint.
type ZoneImpact struct {
	Population     int     `json:"population"`
	AffectedEst    int     `json:"affected_est"`
	ImpactFraction float64 `json:"impact_fraction"`
}

// HazardResult is the unified output of one pipeline run. Impact is nil when
// the event has no land impact. Footprint carries the same geometry as Impact
// for in-process consumers and the store; it is not part of the JSON document.
type HazardResult struct {
	Version               int                        `json:"version"`
	GeoJSON               *geojson.FeatureCollection `json:"geojson"`
	Cutoffs               map[string]int             `json:"cutoffs"`
	Impact                *geojson.FeatureCollection `json:"impact"`
	ImpactPopulationTotal int                        `json:"impact_population_total"`
	ImpactByZone          map[string]ZoneImpact      `json:"impact_by_zone"`
	GeneratedZones        []GeneratedSubzone         `json:"generated_zones"`
	LandMaskSource        string                     `json:"land_mask_source,omitempty"`

	Footprint *geom.MultiPolygon `json:"-"`
}

// NewHazardResult returns an empty result with non-nil collections, which
// serializes with empty arrays and objects rather than nulls.
func NewHazardResult() *HazardResult {
	return &HazardResult{
		GeoJSON:        &geojson.FeatureCollection{Features: []*geojson.Feature{}},
		Cutoffs:        map[string]int{},
		ImpactByZone:   map[string]ZoneImpact{},
		GeneratedZones: []GeneratedSubzone{},
	}
}

// HasImpact reports whether the run produced a land footprint.
func (r *HazardResult) HasImpact() bool {
	return r != nil && r.Footprint != nil && r.Footprint.NumPolygons() > 0
}

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusNoImpact RunStatus = "no_impact"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID           string        `json:"id"`
	ScenarioName string        `json:"scenario_name"`
	Seed         uint64        `json:"seed"`
	Status       RunStatus     `json:"status"`
	Result       *HazardResult `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
