package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Ingest a knowledge directory and rebuild the passage index",
	Long: `Parses every .json university record and .txt fact sheet directly under
the given directory (the configured dataset dir by default), splits them into
passages, and rebuilds the index from scratch. Other file types are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		dir := app.cfg.DatasetDir
		if len(args) == 1 {
			dir = args[0]
		}

		res, err := app.indexer().IndexDir(cmd.Context(), dir)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %d passages\n", res.Documents, res.Passages)
		for _, name := range res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipped: %s\n", name)
		}
		return nil
	},
}
