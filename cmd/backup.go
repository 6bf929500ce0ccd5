package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// createBackupCommand creates the backup subcommand
func createBackupCommand() *cobra.Command {
	var upload bool
	var list bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Produce a framed full-database backup file",
		Long: `Dump the configured database through the cipher and compression transforms
into a tagged backup file in the backup directory. When the database does not
exist there is nothing to be done and no file is produced.

With --upload the finished artifact is also pushed to the configured storage
provider. With --list the artifacts held by the storage provider are printed
instead of producing a backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if list {
				names, err := app.ListBackups(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Println("No backups in storage.")
					return nil
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			}

			path, err := app.Backup(ctx, upload)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Println("Database does not exist, nothing to be done.")
				return nil
			}

			fmt.Printf("Backup written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "push the finished backup to the configured storage provider")
	cmd.Flags().BoolVar(&list, "list", false, "list backups held by the configured storage provider")

	return cmd
}
