package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/extraction"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract company contact details for a range of ledger rows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rng, err := rangeFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		p := newExtractionPipeline(cfg, env.Ledger)
		sum, runID, err := store.Track(ctx, env.Store, model.StageExtraction, rng, func(ctx context.Context) (*extraction.Summary, error) {
			return p.Run(ctx, rng)
		})
		if sum != nil {
			formatExtractionSummary(os.Stdout, sum, runID)
		}
		return eris.Wrap(err, "extract")
	},
}

// rangeFlags reads --start/--end into a validated range.
func rangeFlags(cmd *cobra.Command) (model.Range, error) {
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	rng := model.Range{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return rng, err
	}
	return rng, nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("start", 0, "first ledger row (1-based, header excluded)")
	cmd.Flags().Int("end", 0, "last ledger row, inclusive")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

// formatExtractionSummary writes an extraction summary to out.
func formatExtractionSummary(out io.Writer, s *extraction.Summary, runID string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Range:\t%s\n", s.Range)
	_, _ = fmt.Fprintf(w, "Processed:\t%d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "Success:\t%d\n", s.SuccessCount)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.FailCount)
	_, _ = fmt.Fprintf(w, "  Timed out:\t%d\n", s.TimeoutCount)
	_, _ = fmt.Fprintf(w, "Skipped (no link):\t%d\n", s.SkippedNoLink)
	_, _ = fmt.Fprintf(w, "Skipped (already extracted):\t%d\n", s.SkippedAlreadyAttempted)
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", s.Duration.Round(time.Second))
	if runID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", runID)
	}
	_ = w.Flush()
}

func init() {
	addRangeFlags(extractCmd)
	rootCmd.AddCommand(extractCmd)
}
