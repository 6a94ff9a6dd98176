package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/config"
	"github.com/sells-group/hazard-cli/internal/footprint"
	"github.com/sells-group/hazard-cli/internal/hazard"
	"github.com/sells-group/hazard-cli/internal/model"
	"github.com/sells-group/hazard-cli/internal/store"
)

// pipelineEnv holds the store, metrics and pipeline needed by the run and
// batch commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *hazard.Pipeline
	Metrics  *hazard.Metrics
	textfile string
}

// Close flushes the metrics textfile, when configured, and closes the store.
func (pe *pipelineEnv) Close() {
	if pe.textfile != "" && pe.Metrics != nil {
		if err := pe.Metrics.WriteTextfile(pe.textfile); err != nil {
			zap.L().Warn("write metrics textfile failed", zap.String("path", pe.textfile), zap.Error(err))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured run store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// hazardOptions maps configuration onto pipeline options.
func hazardOptions(c *config.Config) hazard.Options {
	h := c.Hazard
	return hazard.Options{
		DataDir:       c.DataDir,
		ClipDensifyKm: h.ClipDensifyKm,
		LandMarginKm:  h.LandMarginKm,
		AOIPadKm:      h.AOIPadKm,
		Footprint: footprint.Options{
			Phase:    h.FootprintPhase,
			BufferKm: h.FootprintBufferKm,
		},
		Policy:        h.Partition,
		DensityPerKm2: h.Defaults.DensityPerKm2,
		CutoffMin:     h.Defaults.CutoffMin,
		TargetKm2:     h.Defaults.TargetKm2,
	}
}

// initPipeline sets up the store, metrics and pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	metrics, err := hazard.NewMetrics(nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &pipelineEnv{
		Store:    st,
		Pipeline: hazard.New(hazardOptions(c), metrics),
		Metrics:  metrics,
		textfile: c.Metrics.Textfile,
	}, nil
}

// newRun builds the stored record for a finished pipeline call.
func newRun(name string, seed uint64, res *model.HazardResult, runErr error) *model.Run {
	run := &model.Run{ScenarioName: name, Seed: seed}
	switch {
	case runErr != nil:
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	case res.HasImpact():
		run.Status = model.RunStatusComplete
		run.Result = res
	default:
		run.Status = model.RunStatusNoImpact
		run.Result = res
	}
	return run
}

// previousResult returns the latest non-failed result for name, or nil.
func previousResult(ctx context.Context, st store.Store, name string) (*model.HazardResult, error) {
	prev, err := st.LatestRun(ctx, name)
	if err != nil {
		return nil, eris.Wrapf(err, "latest run for %s", name)
	}
	if prev == nil {
		return nil, nil
	}
	return prev.Result, nil
}

// writeJSON writes v indented to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}
