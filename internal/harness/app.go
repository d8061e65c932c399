// Package harness wires configuration, the metrics collector, the performance
// analyzer and the runner into the operations exposed by the CLI.
package harness

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/BjornMelin/contribux-sub004/internal/harness/alert"
	"github.com/BjornMelin/contribux-sub004/internal/harness/analysis"
	"github.com/BjornMelin/contribux-sub004/internal/harness/baseline"
	"github.com/BjornMelin/contribux-sub004/internal/harness/metrics"
	"github.com/BjornMelin/contribux-sub004/internal/harness/report"
	"github.com/BjornMelin/contribux-sub004/internal/harness/runner"
)

// Config holds all user-customizable parameters. Using a single struct for
// all CLI commands ensures flags stay distinct and that they can be provided
// either on a command line or statically in a config file.
type Config struct {
	// Command spawns the underlying test execution.
	Command []string `mapstructure:"command"`
	// Pattern restricts which tests run.
	Pattern  string `mapstructure:"pattern"`
	Reporter string `mapstructure:"reporter"`
	Parallel int    `mapstructure:"parallel"`
	// Timeout is the wall-clock budget for one suite execution.
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
	// RequiredEnv lists credentials that must be present before a run.
	RequiredEnv []string `mapstructure:"requiredEnv"`
	Environment string   `mapstructure:"environment"`

	// OutputDir receives run artifacts; BaselineDir holds the baseline store.
	OutputDir   string `mapstructure:"outputDir"`
	BaselineDir string `mapstructure:"baselineDir"`
	// Format selects the artifact format, json or yaml.
	Format string `mapstructure:"format"`
	// RetentionDays bounds how long timestamped artifacts are kept.
	RetentionDays int `mapstructure:"retentionDays"`

	WatchInterval  time.Duration `mapstructure:"watchInterval"`
	MetricsAddress string        `mapstructure:"metricsAddress"`

	SlackWebhookURL string `mapstructure:"slackWebhookUrl"`
	SlackChannel    string `mapstructure:"slackChannel"`
	WebhookURL      string `mapstructure:"webhookUrl"`

	Thresholds analysis.Thresholds `mapstructure:"thresholds"`
}

func DefaultConfig() *Config {
	return &Config{
		Command:        []string{"npx", "playwright", "test"},
		Timeout:        10 * time.Minute,
		Environment:    "local",
		OutputDir:      "test-results",
		BaselineDir:    "performance-baselines",
		Format:         "json",
		RetentionDays:  30,
		WatchInterval:  15 * time.Minute,
		MetricsAddress: ":9464",
		Thresholds:     analysis.DefaultThresholds(),
	}
}

// Params holds all user-customizable parameters.
type Params struct {
	Config *Config
}

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out, but can be
	// overridden in tests to make assertions on the application's output.
	Out io.Writer
}

// New instantiates an App with default parameters and standard output.
func New() *App {
	return &App{
		Params: &Params{Config: DefaultConfig()},
		Out:    os.Stdout,
	}
}

func (a *App) writer() *report.ArtifactWriter {
	return report.NewArtifactWriter(a.Params.Config.OutputDir, a.Params.Config.Format)
}

func (a *App) analyzer() *analysis.Analyzer {
	config := a.Params.Config
	return analysis.NewAnalyzer(baseline.NewStore(config.BaselineDir), a.writer(), config.Thresholds)
}

func (a *App) dispatcher() *alert.Dispatcher {
	config := a.Params.Config
	var channels []alert.Channel
	if config.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackChannel(config.SlackWebhookURL, config.SlackChannel))
	}
	if config.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel(config.WebhookURL))
	}
	if len(channels) == 0 {
		channels = append(channels, alert.LogChannel{})
	}
	return alert.NewDispatcher(channels...)
}

func (a *App) newRunner(collector *metrics.Collector) *runner.Runner {
	config := a.Params.Config
	profiler := metrics.NewProfiler(collector, metrics.DefaultRuntimeCapabilities(), 0)
	r := runner.New(
		runner.Config{
			Command:     config.Command,
			Pattern:     config.Pattern,
			Reporter:    config.Reporter,
			Parallel:    config.Parallel,
			Timeout:     config.Timeout,
			Retries:     config.Retries,
			RequiredEnv: config.RequiredEnv,
			Environment: config.Environment,
		},
		collector,
		profiler,
		a.analyzer(),
		a.writer(),
		a.dispatcher(),
	)
	r.Out = a.Out
	return r
}

// Run executes one full suite cycle and reports whether it succeeded, i.e.
// all tests passed and no critical performance issue was found.
func (a *App) Run(ctx context.Context) (bool, error) {
	result, err := a.newRunner(metrics.NewCollector()).Run(ctx)
	if err != nil {
		return false, err
	}
	return result.Success, nil
}

// Analyze re-runs the performance analysis over an existing report file, or
// over the latest report artifact when path is empty.
func (a *App) Analyze(ctx context.Context, path string) (bool, error) {
	rep := &report.TestReport{}
	if path == "" {
		if err := a.writer().ReadLatest(report.ReportArtifact, rep); err != nil {
			return false, errors.WithMessage(err, "no report file given and no latest report artifact found")
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return false, errors.WithStack(err)
		}
		if err := json.Unmarshal(data, rep); err != nil {
			return false, errors.WithMessagef(err, "could not parse report file %s", path)
		}
	}

	analysisResult, err := a.analyzer().Analyze(rep)
	if err != nil {
		return false, err
	}
	if !rep.Summary.Success || analysisResult.Summary.CriticalIssues > 0 {
		a.dispatcher().Dispatch(ctx, analysisResult.Alerting)
	}
	a.printAnalysis(analysisResult)
	return rep.Summary.Success && analysisResult.Summary.CriticalIssues == 0, nil
}

// Cleanup prunes timestamped artifacts older than the retention window.
func (a *App) Cleanup(_ context.Context) error {
	maxAge := time.Duration(a.Params.Config.RetentionDays) * 24 * time.Hour
	removed, err := a.writer().Prune(maxAge)
	if err != nil {
		return err
	}
	log.Infof("removed %d artifact(s) older than %s", removed, maxAge)
	return nil
}
