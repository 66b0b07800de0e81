package cli

import (
	"github.com/spf13/cobra"

	"taskdesk/internal/app"
	"taskdesk/internal/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return app.Migrate(cmd.Context(), cfg)
}
