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

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/internal/synthesis"
)

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Draft outreach emails for a range of ledger rows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rng, err := rangeFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "emails")
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := newSynthesisPipeline(ctx, cfg, env.Ledger)
		if err != nil {
			return err
		}
		sum, runID, err := store.Track(ctx, env.Store, model.StageSynthesis, rng, func(ctx context.Context) (*synthesis.Summary, error) {
			return p.Run(ctx, rng)
		})
		if sum != nil {
			formatSynthesisSummary(os.Stdout, sum, runID)
		}
		return eris.Wrap(err, "emails")
	},
}

// formatSynthesisSummary writes a synthesis summary to out.
func formatSynthesisSummary(out io.Writer, s *synthesis.Summary, runID string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Range:\t%s\n", s.Range)
	_, _ = fmt.Fprintf(w, "Processed:\t%d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "Success:\t%d\n", s.SuccessCount)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.FailCount)
	_, _ = fmt.Fprintf(w, "Skipped (no link or name):\t%d\n", s.SkippedNoLinkOrName)
	_, _ = fmt.Fprintf(w, "Skipped (has email):\t%d\n", s.SkippedAlreadyHasEmail)
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", s.Duration.Round(time.Second))
	if runID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", runID)
	}
	_ = w.Flush()
}

func init() {
	addRangeFlags(emailsCmd)
	rootCmd.AddCommand(emailsCmd)
}
