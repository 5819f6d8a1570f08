package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write ledger rows to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		start, _ := cmd.Flags().GetInt("start")
		end, _ := cmd.Flags().GetInt("end")
		sheet, _ := cmd.Flags().GetString("sheet")
		onlyEmails, _ := cmd.Flags().GetBool("only-emails")

		if out == "" {
			return eris.New("export: --out is required")
		}

		env, err := initEnv(ctx, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := export.WriteXLSX(ctx, env.Ledger, model.Range{Start: start, End: end}, out, export.Options{
			SheetName:     sheet,
			OnlyWithEmail: onlyEmails,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Exported %d records to %s\n", n, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "leads.xlsx", "output workbook path")
	exportCmd.Flags().Int("start", 1, "first ledger row")
	exportCmd.Flags().Int("end", 0, "last ledger row (0 exports through the end)")
	exportCmd.Flags().String("sheet", export.DefaultSheetName, "worksheet name")
	exportCmd.Flags().Bool("only-emails", false, "only export rows with a drafted sales email")
	rootCmd.AddCommand(exportCmd)
}
