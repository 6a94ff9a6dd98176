// Package partition splits a hazard footprint into relaxed Voronoi subzones and
// scores each one for risk.
package partition

import (
	"math"

	"github.com/sells-group/hazard-cli/internal/model"
)

// Policy holds the tunable constants of the partitioner and the risk model.
type Policy struct {
	DiscardFraction   float64 `mapstructure:"discard_fraction"`
	EdgeWeight        float64 `mapstructure:"edge_weight"`
	DensityWeight     float64 `mapstructure:"density_weight"`
	EdgeDistanceKm    float64 `mapstructure:"edge_distance_km"`
	DensityNormPerKm2 float64 `mapstructure:"density_norm_per_km2"`
	RedThreshold      float64 `mapstructure:"red_threshold"`
	OrangeThreshold   float64 `mapstructure:"orange_threshold"`
	LloydIterations   int     `mapstructure:"lloyd_iterations"`
	SeedDensifyKm     float64 `mapstructure:"seed_densify_km"`
	InteriorRetries   int     `mapstructure:"interior_retries"`
	MaxCells          int     `mapstructure:"max_cells"`
}

// DefaultPolicy returns the standard partitioning and risk constants.
func DefaultPolicy() Policy {
	return Policy{
		DiscardFraction:   0.25,
		EdgeWeight:        0.6,
		DensityWeight:     0.4,
		EdgeDistanceKm:    1.5,
		DensityNormPerKm2: 9000,
		RedThreshold:      0.66,
		OrangeThreshold:   0.33,
		LloydIterations:   2,
		SeedDensifyKm:     0.15,
		InteriorRetries:   1000,
		MaxCells:          2000,
	}
}

// Risk scores a cell from its distance to the footprint edge and its density:
// edge weight × clamp(1 − d/edgeDistance) + density weight ×
// clamp(density/norm), rounded to three decimals.
func (p Policy) Risk(distanceKm, densityPerKm2 float64) float64 {
	edge := clamp01(1 - distanceKm/p.EdgeDistanceKm)
	dens := clamp01(densityPerKm2 / p.DensityNormPerKm2)
	return clamp01(math.Round((p.EdgeWeight*edge+p.DensityWeight*dens)*1000) / 1000)
}

// Band maps a risk score to red, orange or green.
func (p Policy) Band(risk float64) model.RiskBand {
	switch {
	case risk >= p.RedThreshold:
		return model.RiskBandRed
	case risk >= p.OrangeThreshold:
		return model.RiskBandOrange
	default:
		return model.RiskBandGreen
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
