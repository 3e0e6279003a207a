package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/dataset"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check dataset quality before preparation",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().Bool("strict", false, "Exit non-zero when any issue is found")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")

	spin := ui.NewSpinner()
	spin.Start("Validating dataset...")
	ctx := pipeline.WithProgress(cmd.Context(), spin.Update)
	report, err := dataset.NewLoader(cfg).Validate(ctx, cfg.IncludeSupplement, cfg.DatasetPart)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	printReport(cmd.OutOrStdout(), report)
	if strict && !report.OK() {
		return fmt.Errorf("dataset has %d issues",
			len(report.MissingFields)+len(report.DuplicateEmails)+len(report.MissingImages))
	}
	return nil
}
