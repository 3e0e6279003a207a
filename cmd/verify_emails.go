package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukman83/koalaswap-seed/internal/verify"
)

var verifyEmailsCmd = &cobra.Command{
	Use:   "verify-emails",
	Short: "Mark unverified accounts as verified in the backend database",
	Long:  "Flips email_verified directly in the backend database. Run once before product import, or with --watch alongside it so freshly registered sellers get verified as they appear.",
	RunE:  runVerifyEmails,
}

func init() {
	verifyEmailsCmd.Flags().Bool("watch", false, "Keep verifying on an interval instead of a single pass")
	verifyEmailsCmd.Flags().Duration("interval", 5*time.Second, "Polling interval in watch mode")
	verifyEmailsCmd.Flags().Duration("max-duration", time.Hour, "Watch mode stops after this long")
	verifyEmailsCmd.Flags().String("database-url", "", "Backend database URL (default from config)")
	rootCmd.AddCommand(verifyEmailsCmd)
}

func runVerifyEmails(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")
	maxDuration, _ := cmd.Flags().GetDuration("max-duration")
	if v, _ := cmd.Flags().GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}

	ctx := cmd.Context()
	verifier, closeFn, err := verify.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if watch {
		total, err := verifier.Watch(ctx, interval, maxDuration)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Monitor finished, %d accounts verified\n", total)
		return nil
	}

	count, err := verifier.Once(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d accounts verified\n", count)
	return nil
}
