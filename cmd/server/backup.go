package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload one database snapshot now",
	Long: `Snapshot the sqlite database, upload it to the configured bucket and prune
snapshots beyond backup.retain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.BackupsEnabled() {
			return fmt.Errorf("backups need backup.bucket and the sqlite driver")
		}

		stores, err := openStores(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		scheduler, err := buildScheduler(cmd.Context(), cfg, stores, logger)
		if err != nil {
			return err
		}
		location, err := scheduler.RunOnce(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), location)
		return nil
	},
}
