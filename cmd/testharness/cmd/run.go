package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/BjornMelin/contribux-sub004/internal/harness"
)

// Run the test suite once and analyze its performance.
// Exits nonzero if tests failed or performance regressed critically.
func runCmd(app *harness.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test suite and analyze performance against stored baselines.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			success, err := app.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !success {
				return errors.New("test suite failed or performance regressed critically")
			}
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}
