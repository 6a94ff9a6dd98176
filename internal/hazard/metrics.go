package hazard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Run outcomes recorded in hazard_runs_total.
const (
	OutcomeImpact   = "impact"
	OutcomeNoAnchor = "no_anchor"
	OutcomeNoLand   = "no_land_impact"
	OutcomeFailed   = "failed"
)

// Metrics bundles the Prometheus collectors updated by the pipeline.
type Metrics struct {
	gatherer prometheus.Gatherer

	Runs             *prometheus.CounterVec
	Duration         prometheus.Histogram
	LandMaskSources  *prometheus.CounterVec
	Subzones         prometheus.Histogram
	AffectedTotal    prometheus.Gauge
	FootprintAreaKm2 prometheus.Gauge
}

// NewMetrics registers the pipeline collectors against reg. A nil reg gets a
// fresh private registry, so repeated construction in one process never
// collides.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hazard_run_duration_seconds",
			Help:    "Wall time of one pipeline run.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		LandMaskSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_land_mask_source_total",
			Help: "Resolved land mask source per run.",
		}, []string{"source"}),
		Subzones: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hazard_generated_subzones",
			Help:    "Generated subzones per run with land impact.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		AffectedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hazard_impact_population_total",
			Help: "Impacted population of the most recent run.",
		}),
		FootprintAreaKm2: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hazard_footprint_area_km2",
			Help: "Clipped footprint area of the most recent run.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Runs, m.Duration, m.LandMaskSources, m.Subzones, m.AffectedTotal, m.FootprintAreaKm2,
	} {
		if err := reg.Register(c); err != nil {
			return nil, eris.Wrap(err, "hazard: register metrics")
		}
	}
	return m, nil
}

// WriteTextfile dumps the current metric values in the node_exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return eris.Wrapf(err, "hazard: write metrics %s", path)
	}
	return nil
}
