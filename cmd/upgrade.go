package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

// createUpgradeCommand creates the upgrade subcommand
func createUpgradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade [version]",
		Short: "Apply pending schema migration steps",
		Long: `Apply every pending migration step in ascending version order, recording
each applied version in the tracking table. Without an argument the target is
the highest declared version; with one, only steps up to that exact declared
version are applied.

The target database and the tracking table are created when missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target *float64
			if len(args) == 1 {
				parsed, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("invalid target version %q: %w", args[0], err)
				}
				target = &parsed
			}

			app, err := buildApp(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			count, err := app.Upgrade(ctx, target)
			if err != nil {
				return err
			}

			if count == 0 {
				fmt.Println("Nothing to apply.")
			} else {
				fmt.Printf("Applied %d migration step(s).\n", count)
			}
			return nil
		},
	}
}
