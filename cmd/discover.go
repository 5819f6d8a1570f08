package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/discovery"
	"github.com/sells-group/leadgen-cli/internal/ledger"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/customsearch"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search the web and append new leads to the ledger",
	Long:  "Pages through search results for <query> <location>, skips links already in the ledger, and appends up to --target new records.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		query, _ := cmd.Flags().GetString("query")
		location, _ := cmd.Flags().GetString("location")
		target, _ := cmd.Flags().GetInt("target")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		jsonOut, _ := cmd.Flags().GetString("json-out")

		if query == "" || location == "" {
			return eris.New("discover: --query and --location are required")
		}

		env, err := initEnv(ctx, "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		engine, err := newDiscoveryEngine(ctx, cfg, env.Ledger)
		if err != nil {
			return err
		}

		req := discovery.Request{Query: query, Location: location, Target: target}
		run := engine.Run
		if dryRun {
			run = engine.Search
		}

		res, runID, err := store.Track(ctx, env.Store, model.StageDiscovery, req, func(ctx context.Context) (*discovery.Result, error) {
			return run(ctx, req)
		})
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		if jsonOut != "" {
			if err := writeResultsJSON(jsonOut, res.Items); err != nil {
				return err
			}
			zap.L().Info("discover: results written", zap.String("path", jsonOut), zap.Int("items", len(res.Items)))
		}

		link := ""
		if res.Saved {
			link = ledger.LinkOf(env.Ledger)
		}
		formatDiscoveryResult(os.Stdout, req, res, link, runID)
		return nil
	},
}

// writeResultsJSON saves the discovered items as an indented JSON array.
func writeResultsJSON(path string, items []customsearch.Item) error {
	if items == nil {
		items = []customsearch.Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return eris.Wrap(err, "discover: marshal results")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "discover: write %s", path)
	}
	return nil
}

// formatDiscoveryResult writes a discovery summary to out.
func formatDiscoveryResult(out io.Writer, req discovery.Request, res *discovery.Result, link, runID string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Query:\t%s\n", req.Text())
	_, _ = fmt.Fprintf(w, "Fetched:\t%d\n", res.TotalFetched)
	_, _ = fmt.Fprintf(w, "Duplicates skipped:\t%d\n", res.TotalSkipped)
	_, _ = fmt.Fprintf(w, "New records:\t%d / %d\n", res.NewCount, res.Target)
	_, _ = fmt.Fprintf(w, "Reached target:\t%t\n", res.ReachedTarget)
	_, _ = fmt.Fprintf(w, "Stopped:\t%s\n", res.StopReason)
	if res.Saved {
		_, _ = fmt.Fprintf(w, "Saved to:\t%s\n", link)
	} else {
		_, _ = fmt.Fprintln(w, "Saved to:\t(not saved)")
	}
	if runID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", runID)
	}
	_ = w.Flush()
}

func init() {
	discoverCmd.Flags().String("query", "", "search keyword, e.g. \"roofing contractor\"")
	discoverCmd.Flags().String("location", "", "region appended to the query, e.g. \"Denver CO\"")
	discoverCmd.Flags().Int("target", 0, "number of new records to collect (default from config, max 100)")
	discoverCmd.Flags().Bool("dry-run", false, "search and deduplicate without writing to the ledger")
	discoverCmd.Flags().String("json-out", "", "also write discovered items to this JSON file")
	rootCmd.AddCommand(discoverCmd)
}
