package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "koalaseed",
	Short: "KoalaSwap Seed - dataset preparation and import CLI",
	Long:  "Prepares marketplace seed data from the scraped dataset and imports users, products and images into a KoalaSwap environment.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("dataset-dir", "", "Dataset directory (default ./dataset)")
	rootCmd.PersistentFlags().String("output-dir", "", "Artifact output directory (default ./output)")
	rootCmd.PersistentFlags().String("api-base", "", "KoalaSwap API base URL")
	rootCmd.PersistentFlags().String("dataset-part", "", "Product partition: complete or supplement")
	rootCmd.PersistentFlags().Bool("include-supplement", false, "Merge supplement users over the primary file")
	rootCmd.PersistentFlags().Int64("random-seed", 0, "Seed for the deterministic free-shipping draw")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func initConfig() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	// Override from flags
	if v, _ := rootCmd.PersistentFlags().GetString("dataset-dir"); v != "" {
		cfg.DatasetDir = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("api-base"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("dataset-part"); v != "" {
		cfg.DatasetPart = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("include-supplement"); v {
		cfg.IncludeSupplement = true
	}
	if v, _ := rootCmd.PersistentFlags().GetInt64("random-seed"); v != 0 {
		cfg.RandomSeed = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}

	var err error
	logger, err = logging.New(cfg.LogLevel, cfg.LogFile("koalaseed.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable, logging to stderr only: %v\n", err)
		logger = logging.NewWithWriter(cfg.LogLevel, os.Stderr)
	}
}

// buildClient creates the rate-limited marketplace API client from config.
func buildClient() *api.Client {
	return api.NewClient(cfg, logger)
}
