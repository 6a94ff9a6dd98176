package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/hazard-cli/internal/landmask"
	"github.com/sells-group/hazard-cli/internal/model"
	"github.com/sells-group/hazard-cli/internal/monitoring"
	"github.com/sells-group/hazard-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect hazard run history",
	Long:  "Commands for listing, viewing, and summarizing stored hazard runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hazard runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		name, _ := cmd.Flags().GetString("scenario")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:       model.RunStatus(status),
			ScenarioName: name,
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		return writeJSON(os.Stdout, "", run)
	},
}

// -- runs latest --

var runsLatestCmd = &cobra.Command{
	Use:   "latest <scenario>",
	Short: "Show the latest successful result for a scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.LatestRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs latest")
		}
		if run == nil {
			return eris.Errorf("no runs for scenario %q", args[0])
		}
		return writeJSON(os.Stdout, "", run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		snap, err := monitoring.NewCollector(st).Collect(ctx, int(since.Hours()))
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (complete, no_impact, failed)")
	runsListCmd.Flags().String("scenario", "", "filter by scenario name")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsLatestCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSCENARIO\tSTATUS\tVERSION\tAFFECTED\tSEED\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t-------\t--------\t----\t-------")

	for _, r := range runs {
		version, affected := "-", "-"
		if r.Result != nil {
			version = fmt.Sprint(r.Result.Version)
			affected = fmt.Sprint(r.Result.ImpactPopulationTotal)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			truncateID(r.ID),
			truncate(r.ScenarioName, 30),
			r.Status,
			version,
			affected,
			r.Seed,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatSnapshot writes aggregate stats to w.
func formatSnapshot(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.RunsTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.RunsComplete)
	_, _ = fmt.Fprintf(w, "No impact:\t%d\n", s.RunsNoImpact)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.RunsFailed)
	if s.RunsTotal > 0 {
		_, _ = fmt.Fprintf(w, "Fail rate:\t%.1f%%\n", s.FailRate*100)
	}
	if s.RunsComplete > 0 {
		_, _ = fmt.Fprintf(w, "Avg affected:\t%.0f\n", s.AvgAffected)
		_, _ = fmt.Fprintf(w, "Max affected:\t%d\n", s.MaxAffected)
		_, _ = fmt.Fprintf(w, "Avg subzones:\t%.1f\n", s.AvgSubzones)
	}
	for _, src := range []landmask.Source{landmask.SourceScenario, landmask.SourceCoastline, landmask.SourceZones, landmask.SourceNone} {
		if n := s.LandMaskSources[string(src)]; n > 0 {
			_, _ = fmt.Fprintf(w, "Land mask %s:\t%d\n", src, n)
		}
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
