package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/metadata"
	"github.com/lukman83/koalaswap-seed/internal/seedprep"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which seed artifacts exist and their sizes",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Output directory: %s\n\n", cfg.OutputDir)

	var summary seedprep.Summary
	if err := metadata.ReadJSON(cfg.OutputFile("summary.json"), &summary); err == nil {
		fmt.Fprintf(out, "Last preparation run %s (part=%s):\n", summary.RunID, summary.DatasetPart)
		fmt.Fprintf(out, "  %d users, %d products, %d placeholder sellers\n\n",
			summary.UsersTotal, summary.ProductsTotal, summary.PlaceholderSellers)
	} else if os.IsNotExist(err) {
		fmt.Fprintln(out, "No preparation run recorded; run `koalaseed prepare` first.")
	} else {
		return err
	}

	statusLine(out, "user snapshot", func() (int, error) {
		entries, err := snapshot.ReadUsers(cfg.OutputFile("user_seed_snapshot.json"))
		return len(entries), err
	})
	statusLine(out, "product snapshot", func() (int, error) {
		entries, err := snapshot.ReadProducts(cfg.OutputFile("product_seed_snapshot.json"))
		return len(entries), err
	})
	statusLine(out, "import results", func() (int, error) {
		entries, err := snapshot.ReadResults(cfg.OutputFile("product_import_results.json"))
		return len(entries), err
	})
	statusLine(out, "placeholder sellers", func() (int, error) {
		sellers, err := metadata.NewStore(cfg).LoadPlaceholderSellers()
		return len(sellers), err
	})
	statusLine(out, "category mapping", func() (int, error) {
		mapping, err := metadata.NewStore(cfg).LoadCategoryMapping()
		return len(mapping), err
	})
	return nil
}

func statusLine(out io.Writer, name string, load func() (int, error)) {
	count, err := load()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintf(out, "  %-20s missing\n", name)
	case err != nil:
		fmt.Fprintf(out, "  %-20s unreadable: %v\n", name, err)
	default:
		fmt.Fprintf(out, "  %-20s %d entries\n", name, count)
	}
}
