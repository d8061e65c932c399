package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BjornMelin/contribux-sub004/internal/harness"
)

// Print the latest persisted analysis in full.
func reportCmd(app *harness.App) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the latest performance analysis.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Report(cmd.Context())
		},
	}
}

// Print a one-screen summary of the latest analysis.
func statusCmd(app *harness.App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a summary of the latest performance analysis.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Status(cmd.Context())
		},
	}
}
