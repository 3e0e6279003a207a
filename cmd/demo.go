package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/dataset"
	"github.com/lukman83/koalaswap-seed/internal/metadata"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/seedprep"
	"github.com/lukman83/koalaswap-seed/internal/ui"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Prepare seed data and write a small demo subset report",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().Int("users", 5, "Number of users in the demo sample")
	demoCmd.Flags().Int("products", 10, "Number of products in the demo sample")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	userLimit, _ := cmd.Flags().GetInt("users")
	productLimit, _ := cmd.Flags().GetInt("products")

	spin := ui.NewSpinner()
	spin.Start("Preparing seed data...")
	ctx := pipeline.WithProgress(cmd.Context(), spin.Update)
	summary, err := seedprep.New(cfg, logger).Run(ctx)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("preparation failed: %w", err)
	}
	logger.Info("preparation complete", "run_id", summary.RunID,
		"users", summary.UsersTotal, "products", summary.ProductsTotal)

	loader := dataset.NewLoader(cfg)
	users, err := loader.LoadUsers(cfg.IncludeSupplement)
	if err != nil {
		return err
	}
	products, err := loader.LoadProducts(cfg.DatasetPart)
	if err != nil {
		return err
	}

	// users load as a map; sample in id order so the report is stable
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > userLimit {
		ids = ids[:userLimit]
	}
	userSample := make([]dataset.UserRecord, 0, len(ids))
	for _, id := range ids {
		userSample = append(userSample, users[id])
	}
	if len(products) > productLimit {
		products = products[:productLimit]
	}

	report := map[string]any{
		"user_sample":    userSample,
		"product_sample": products,
	}
	path := cfg.OutputFile("demo_seed_report.json")
	if err := metadata.WriteJSON(path, report); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Demo report generated with %d users and %d products: %s\n",
		len(userSample), len(products), path)
	return nil
}
