package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hazard-cli/internal/hazard"
	"github.com/sells-group/hazard-cli/internal/model"
	"github.com/sells-group/hazard-cli/internal/scenario"
)

var (
	batchSeed        uint64
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Run every scenario file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		seed := batchSeed
		if !cmd.Flags().Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}
		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		env, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := processBatch(ctx, env, args[0], seed, concurrency)
		if err != nil {
			return err
		}
		formatBatchSummary(os.Stdout, runs)
		return nil
	},
}

func init() {
	batchCmd.Flags().Uint64Var(&batchSeed, "seed", 0, "base seed; scenario i uses seed+i (defaults to the current time)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max scenarios in flight (defaults to batch.concurrency)")
	rootCmd.AddCommand(batchCmd)
}

// scenarioFiles lists the scenario documents in dir in name order.
func scenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// processBatch runs all scenarios in dir and stores one run per file.
// Scenarios that fail to load are stored as failed runs without reaching the
// pipeline.
func processBatch(ctx context.Context, env *pipelineEnv, dir string, seed uint64, concurrency int) ([]*model.Run, error) {
	files, err := scenarioFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		zap.L().Warn("no scenario files found", zap.String("dir", dir))
		return nil, nil
	}

	runs := make([]*model.Run, len(files))
	var jobs []hazard.Job
	var slots []int
	for i, path := range files {
		jobSeed := seed + uint64(i)
		s, err := scenario.Load(path)
		if err != nil {
			runs[i] = newRun(scenario.Name(nil, path), jobSeed, nil, err)
			continue
		}
		name := scenario.Name(s, path)
		prev, err := previousResult(ctx, env.Store, name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, hazard.Job{Name: name, Scenario: s, Seed: jobSeed, Prev: prev})
		slots = append(slots, i)
	}

	for k, o := range env.Pipeline.RunBatch(ctx, jobs, concurrency) {
		runs[slots[k]] = newRun(o.Job.Name, o.Job.Seed, o.Result, o.Err)
	}

	for _, run := range runs {
		if err := env.Store.SaveRun(ctx, run); err != nil {
			return nil, eris.Wrapf(err, "save run for %s", run.ScenarioName)
		}
	}
	return runs, nil
}

// formatBatchSummary writes one line per batch run to w.
func formatBatchSummary(out io.Writer, runs []*model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSCENARIO\tSTATUS\tVERSION\tAFFECTED\tSUBZONES\tERROR")
	for _, r := range runs {
		version, affected, subzones := "-", "-", "-"
		if r.Result != nil {
			version = fmt.Sprint(r.Result.Version)
			affected = fmt.Sprint(r.Result.ImpactPopulationTotal)
			subzones = fmt.Sprint(len(r.Result.GeneratedZones))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID), r.ScenarioName, r.Status, version, affected, subzones, truncate(r.Error, 60))
	}
	_ = w.Flush()
}
