package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger row count and location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "status")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Ledger.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		fmt.Fprintf(os.Stdout, "Records: %d\n", n)
		if link := ledger.LinkOf(env.Ledger); link != "" {
			fmt.Fprintf(os.Stdout, "Ledger:  %s\n", link)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
