package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BjornMelin/contribux-sub004/internal/harness"
)

// Run the suite on an interval and expose run metrics for scraping.
func watchCmd(app *harness.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the test suite on an interval and serve run metrics over HTTP.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Create a context that is cancelled on SIGINT/SIGTERM so the
			// spawned test process is killed on ctrl-C.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stopSignal := make(chan os.Signal, 1)
			signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				select {
				case <-ctx.Done():
					return
				case <-stopSignal:
					cancel()
				}
			}()

			err := app.Watch(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Duration("interval", 0, "Time between watch cycles.")
	return cmd
}
