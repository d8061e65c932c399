package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/BjornMelin/contribux-sub004/internal/common"
	"github.com/BjornMelin/contribux-sub004/internal/harness"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testharness",
		Short: "testharness runs integration test suites and analyzes performance regressions.",
		Long: `testharness runs integration test suites, collects runtime metrics,
compares them against stored performance baselines and reports regressions.

Persistent config can be saved in a testharness.yaml file so it doesn't have
to be specified on every command. The directory containing this file can be
passed in using the --config argument; the current directory is used if not
provided.`,
	}

	cmd.PersistentFlags().String("config", ".", "Directory containing testharness.yaml.")
	cmd.PersistentFlags().String("output-dir", "", "Directory receiving run artifacts.")
	cmd.PersistentFlags().String("baseline-dir", "", "Directory holding the performance baseline store.")
	cmd.PersistentFlags().String("format", "", "Artifact format: json or yaml.")

	cmd.AddCommand(
		runCmd(harness.New()),
		analyzeCmd(harness.New()),
		reportCmd(harness.New()),
		statusCmd(harness.New()),
		cleanupCmd(harness.New()),
		watchCmd(harness.New()),
	)

	return cmd
}

// initParams loads the config file and applies any command-line overrides.
func initParams(cmd *cobra.Command, app *harness.App) error {
	config := app.Params.Config
	configDir, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if err := common.LoadConfig(config, configDir, "testharness"); err != nil {
		return err
	}

	stringOverrides := map[string]*string{
		"output-dir":    &config.OutputDir,
		"baseline-dir":  &config.BaselineDir,
		"format":        &config.Format,
		"pattern":       &config.Pattern,
		"reporter":      &config.Reporter,
		"environment":   &config.Environment,
		"slack-webhook": &config.SlackWebhookURL,
		"slack-channel": &config.SlackChannel,
		"webhook":       &config.WebhookURL,
	}
	intOverrides := map[string]*int{
		"retries":  &config.Retries,
		"parallel": &config.Parallel,
	}
	durationOverrides := map[string]*time.Duration{
		"timeout":  &config.Timeout,
		"interval": &config.WatchInterval,
	}

	// Command-line flags win over config file values, but only when set.
	var overrideErr error
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		if overrideErr != nil {
			return
		}
		if target, ok := stringOverrides[flag.Name]; ok {
			*target, overrideErr = cmd.Flags().GetString(flag.Name)
		} else if target, ok := intOverrides[flag.Name]; ok {
			*target, overrideErr = cmd.Flags().GetInt(flag.Name)
		} else if target, ok := durationOverrides[flag.Name]; ok {
			*target, overrideErr = cmd.Flags().GetDuration(flag.Name)
		}
	})
	return overrideErr
}

// addRunFlags registers the flags shared by commands that execute the suite.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("pattern", "", "Test file pattern, e.g. './tests/**/*.spec.ts'.")
	cmd.Flags().Duration("timeout", 0, "Wall-clock budget for the spawned test process.")
	cmd.Flags().Int("retries", 0, "Times to re-run the suite when the process fails.")
	cmd.Flags().Int("parallel", 0, "Worker count passed to the test runner.")
	cmd.Flags().String("reporter", "", "Reporter type passed to the test runner.")
	cmd.Flags().String("environment", "", "Name of the environment under test.")
	cmd.Flags().String("slack-webhook", "", "Slack incoming webhook URL for alerts.")
	cmd.Flags().String("slack-channel", "", "Slack channel for alerts.")
	cmd.Flags().String("webhook", "", "Generic webhook URL for alerts.")
}
