package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/importer"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/ui"
)

var importUsersCmd = &cobra.Command{
	Use:   "import-users",
	Short: "Register prepared seed users against the marketplace API",
	Long:  "Registers every user in the prepared snapshot. Dry run by default; pass --execute to perform remote calls. Duplicate registrations are skipped, so re-running is safe.",
	RunE:  runImportUsers,
}

func init() {
	importUsersCmd.Flags().Bool("execute", false, "Perform remote calls instead of a dry run")
	importUsersCmd.Flags().Int("batch-size", 0, "Progress log interval")
	importUsersCmd.Flags().Bool("include-placeholders", false, "Also register placeholder sellers")
	rootCmd.AddCommand(importUsersCmd)
}

func runImportUsers(cmd *cobra.Command, args []string) error {
	execute, _ := cmd.Flags().GetBool("execute")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	includePlaceholders, _ := cmd.Flags().GetBool("include-placeholders")

	stage := importer.NewUsers(cfg, buildClient(), logger)
	opts := importer.Options{
		Execute:             execute,
		BatchSize:           batchSize,
		IncludePlaceholders: includePlaceholders,
		Out:                 cmd.OutOrStdout(),
	}

	ctx := cmd.Context()
	if execute {
		spin := ui.NewSpinner()
		spin.Start("Importing users...")
		ctx = pipeline.WithProgress(ctx, spin.Update)
		defer spin.Stop()
	}

	if _, err := stage.Run(ctx, opts); err != nil {
		return fmt.Errorf("user import failed: %w", err)
	}
	return nil
}
