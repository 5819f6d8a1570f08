package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect batch run history",
	Long:  "Commands for listing, viewing, and summarizing discovery, extraction, and email runs.",
}

func openStoreForRuns(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), cfg.Store)
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batch runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStoreForRuns(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stage, _ := cmd.Flags().GetString("stage")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Stage:  model.Stage(stage),
			Status: model.RunStatus(status),
			Limit:  limit,
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

		st, err := openStoreForRuns(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics per stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStoreForRuns(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs, since, time.Now()))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("stage", "", "filter by stage (discovery, extraction, synthesis)")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h); 0 for all")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// stageStats holds aggregate statistics for one stage.
type stageStats struct {
	Total      int
	Complete   int
	Failed     int
	Running    int
	AvgDurSecs float64
}

// runStats holds per-stage statistics computed from a set of runs.
type runStats struct {
	Total  int
	Stages map[model.Stage]*stageStats
}

var statStages = []model.Stage{model.StageDiscovery, model.StageExtraction, model.StageSynthesis}

// computeRunStats aggregates runs created within since of now. A zero since
// counts every run.
func computeRunStats(runs []model.Run, since time.Duration, now time.Time) runStats {
	s := runStats{Stages: make(map[model.Stage]*stageStats)}
	durs := make(map[model.Stage]time.Duration)

	for _, r := range runs {
		if since > 0 && r.CreatedAt.Before(now.Add(-since)) {
			continue
		}
		st, ok := s.Stages[r.Stage]
		if !ok {
			st = &stageStats{}
			s.Stages[r.Stage] = st
		}
		s.Total++
		st.Total++

		switch r.Status {
		case model.RunStatusComplete:
			st.Complete++
			durs[r.Stage] += r.UpdatedAt.Sub(r.CreatedAt)
		case model.RunStatusFailed:
			st.Failed++
		default:
			st.Running++
		}
	}

	for stage, st := range s.Stages {
		if st.Complete > 0 {
			st.AvgDurSecs = durs[stage].Seconds() / float64(st.Complete)
		}
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTAGE\tSTATUS\tPARAMS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t------\t-------\t--------")

	for _, r := range runs {
		dur := "-"
		if r.Status.IsTerminal() {
			dur = r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()
		}

		params := string(r.Params)
		if len(params) > 40 {
			params = params[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Stage,
			r.Status,
			params,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	for _, stage := range statStages {
		st, ok := s.Stages[stage]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s:\t%d (complete %d, failed %d, running %d)\n",
			stage, st.Total, st.Complete, st.Failed, st.Running)
		if st.AvgDurSecs > 0 {
			_, _ = fmt.Fprintf(w, "  Avg duration:\t%.1fs\n", st.AvgDurSecs)
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
