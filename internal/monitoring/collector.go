// Package monitoring summarizes stored run history.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hazard-cli/internal/model"
	"github.com/sells-group/hazard-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of recent pipeline runs.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsNoImpact int     `json:"runs_no_impact"`
	RunsFailed   int     `json:"runs_failed"`
	FailRate     float64 `json:"fail_rate"`

	// Averages over runs with land impact.
	AvgSubzones float64 `json:"avg_subzones"`
	AvgAffected float64 `json:"avg_affected"`
	MaxAffected int     `json:"max_affected"`

	// Counts of resolved land-mask sources.
	LandMaskSources map[string]int `json:"land_mask_sources"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run statistics from the store.
type Collector struct {
	store RunLister
	limit int
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunLister) *Collector {
	return &Collector{store: st, limit: 10000}
}

// Collect gathers a snapshot of run statistics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LandMaskSources: map[string]int{},
		LookbackHours:   lookbackHours,
		CollectedAt:     now,
	}

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        c.limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var subzones, affected int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusNoImpact:
			snap.RunsNoImpact++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
		if r.Result == nil {
			continue
		}
		if r.Result.LandMaskSource != "" {
			snap.LandMaskSources[r.Result.LandMaskSource]++
		}
		if r.Status == model.RunStatusComplete {
			subzones += len(r.Result.GeneratedZones)
			affected += r.Result.ImpactPopulationTotal
			snap.MaxAffected = max(snap.MaxAffected, r.Result.ImpactPopulationTotal)
		}
	}

	if snap.RunsTotal > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(snap.RunsTotal)
	}
	if snap.RunsComplete > 0 {
		snap.AvgSubzones = float64(subzones) / float64(snap.RunsComplete)
		snap.AvgAffected = float64(affected) / float64(snap.RunsComplete)
	}
	return snap, nil
}
