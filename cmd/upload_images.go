package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/importer"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/ui"
)

var uploadImagesCmd = &cobra.Command{
	Use:   "upload-images",
	Short: "Upload primary listing images for imported products",
	Long:  "Joins the product import results against the local dataset and uploads each product's primary image through the request-upload handshake. Dry run by default; pass --execute to perform remote calls.",
	RunE:  runUploadImages,
}

func init() {
	uploadImagesCmd.Flags().Bool("execute", false, "Perform remote calls instead of a dry run")
	rootCmd.AddCommand(uploadImagesCmd)
}

func runUploadImages(cmd *cobra.Command, args []string) error {
	execute, _ := cmd.Flags().GetBool("execute")

	stage := importer.NewImages(cfg, buildClient(), logger)
	opts := importer.Options{Execute: execute, Out: cmd.OutOrStdout()}

	ctx := cmd.Context()
	if execute {
		spin := ui.NewSpinner()
		spin.Start("Uploading images...")
		ctx = pipeline.WithProgress(ctx, spin.Update)
		defer spin.Stop()
	}

	if _, err := stage.Run(ctx, opts); err != nil {
		return fmt.Errorf("image upload failed: %w", err)
	}
	return nil
}
