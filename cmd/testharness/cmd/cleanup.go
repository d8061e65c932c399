package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BjornMelin/contribux-sub004/internal/harness"
)

// Prune old artifacts from the output directory.
func cleanupCmd(app *harness.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove timestamped artifacts older than the retention window.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initParams(cmd, app); err != nil {
				return err
			}
			if flag := cmd.Flags().Lookup("retention-days"); flag.Changed {
				days, err := cmd.Flags().GetInt("retention-days")
				if err != nil {
					return err
				}
				app.Params.Config.RetentionDays = days
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Cleanup(cmd.Context())
		},
	}
	cmd.Flags().Int("retention-days", 0, "Remove artifacts older than this many days.")
	return cmd
}
