package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/BjornMelin/contribux-sub004/internal/harness"
)

// Re-run the performance analysis over an existing report.
func analyzeCmd(app *harness.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [report file]",
		Short: "Analyze an existing test report against stored baselines.",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			success, err := app.Analyze(cmd.Context(), path)
			if err != nil {
				return err
			}
			if !success {
				return errors.New("report contains failures or critical performance regressions")
			}
			return nil
		},
	}
	cmd.Flags().String("slack-webhook", "", "Slack incoming webhook URL for alerts.")
	cmd.Flags().String("slack-channel", "", "Slack channel for alerts.")
	cmd.Flags().String("webhook", "", "Generic webhook URL for alerts.")
	return cmd
}
