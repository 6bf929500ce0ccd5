package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mysql-schema-ops/internal/application"
)

// createRestoreCommand creates the restore subcommand
func createRestoreCommand() *cobra.Command {
	var fromStorage string

	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Drop and recreate the database from a backup file",
		Long: `Restore the configured database from a backup file: the given file, the
latest file in the backup directory, or an artifact pulled from the
configured storage provider with --from-storage.

The target database is dropped entirely and recreated before the restore
executable runs. The cipher password and compression algorithm must match
the ones used when the backup was produced. The file is rejected before any
destructive action when it does not start with the backup tag.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := buildConfig(cmd)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if len(args) == 1 {
				config.Backup.File = args[0]
			}

			app, err := application.New(*config)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.Restore(ctx, fromStorage); err != nil {
				return err
			}

			fmt.Println("Restore complete.")
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStorage, "from-storage", "", "name of a storage artifact to pull and restore")

	return cmd
}
