package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/seedprep"
	"github.com/lukman83/koalaswap-seed/internal/ui"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Normalize the dataset and write seed snapshots",
	Long:  "Loads the dataset, reconciles placeholder sellers and category mappings, and writes the user and product seed snapshots plus a run summary.",
	RunE:  runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	spin := ui.NewSpinner()
	spin.Start("Preparing seed data...")
	ctx := pipeline.WithProgress(cmd.Context(), spin.Update)
	summary, err := seedprep.New(cfg, logger).Run(ctx)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("preparation failed: %w", err)
	}

	printSummary(cmd.OutOrStdout(), summary)
	return nil
}
