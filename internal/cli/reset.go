package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskdesk/internal/app"
	"taskdesk/internal/config"
	"taskdesk/internal/services"
)

func init() {
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset-recurring",
	Short: "Reopen completed recurring tasks and delete their photos",
	Long: `Reopen every completed recurring task and delete its attached photos.
Bonus balances are left untouched. Run it once a day, e.g. from cron at 00:05.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	report, err := app.RunResetSweep(ctx, cfg)
	printReport(cmd, report)
	return err
}

func printReport(cmd *cobra.Command, r services.ResetReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tasks reopened: %d\n", r.Reset)
	fmt.Fprintf(out, "Photos released: %d\n", len(r.Released))
	if r.FailedDeletes > 0 {
		fmt.Fprintf(out, "Failed deletes: %d\n", r.FailedDeletes)
	}
}
