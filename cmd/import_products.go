package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/importer"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/ui"
)

var importProductsCmd = &cobra.Command{
	Use:   "import-products",
	Short: "Create prepared seed products, grouped by seller",
	Long:  "Logs each seller in and creates their products, recording the dataset-to-remote id mapping the image stage needs. Dry run by default; pass --execute to perform remote calls.",
	RunE:  runImportProducts,
}

func init() {
	importProductsCmd.Flags().Bool("execute", false, "Perform remote calls instead of a dry run")
	importProductsCmd.Flags().Int("batch-size", 0, "Progress log interval per seller")
	rootCmd.AddCommand(importProductsCmd)
}

func runImportProducts(cmd *cobra.Command, args []string) error {
	execute, _ := cmd.Flags().GetBool("execute")
	batchSize, _ := cmd.Flags().GetInt("batch-size")

	stage := importer.NewProducts(cfg, buildClient(), logger)
	opts := importer.Options{
		Execute:   execute,
		BatchSize: batchSize,
		Out:       cmd.OutOrStdout(),
	}

	ctx := cmd.Context()
	if execute {
		spin := ui.NewSpinner()
		spin.Start("Importing products...")
		ctx = pipeline.WithProgress(ctx, spin.Update)
		defer spin.Stop()
	}

	if _, err := stage.Run(ctx, opts); err != nil {
		var bootstrapErr *importer.BootstrapError
		if errors.As(err, &bootstrapErr) {
			return fmt.Errorf("%w\nThe backend keeps accounts unverified until their email is confirmed; `koalaseed verify-emails` flips them in bulk.", err)
		}
		return fmt.Errorf("product import failed: %w", err)
	}
	return nil
}
