package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BjornMelin/contribux-sub004/internal/harness/alert"
	"github.com/BjornMelin/contribux-sub004/internal/harness/analysis"
	"github.com/BjornMelin/contribux-sub004/internal/harness/baseline"
	"github.com/BjornMelin/contribux-sub004/internal/harness/metrics"
	"github.com/BjornMelin/contribux-sub004/internal/harness/report"
)

type runnerFixture struct {
	runner    *Runner
	collector *metrics.Collector
	outputDir string
	store     *baseline.Store
}

func newFixture(t *testing.T, config Config) *runnerFixture {
	outputDir := t.TempDir()
	collector := metrics.NewCollector()
	caps := metrics.RuntimeCapabilities{ReadHeap: func() uint64 { return 1024 }}
	profiler := metrics.NewProfiler(collector, caps, time.Hour)
	writer := report.NewArtifactWriter(outputDir, "json")
	store := baseline.NewStore(t.TempDir())
	analyzer := analysis.NewAnalyzer(store, writer, analysis.DefaultThresholds())

	r := New(config, collector, profiler, analyzer, writer, alert.NewDispatcher(alert.LogChannel{}))
	r.Out = os.Stderr
	return &runnerFixture{runner: r, collector: collector, outputDir: outputDir, store: store}
}

func shellCommand(script string) []string {
	return []string{"sh", "-c", script}
}

func TestMissingCredentialsAbortBeforeRunning(t *testing.T) {
	f := newFixture(t, Config{
		Command:     shellCommand("echo should not run"),
		RequiredEnv: []string{"HARNESS_TEST_TOKEN"},
	})
	f.runner.Getenv = func(string) string { return "" }

	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Report)
	assert.Equal(t, 1, result.Report.Summary.Total)
	assert.Equal(t, 1, result.Report.Summary.Failed)
	assert.Nil(t, result.Analysis)

	// Fatal setup errors abort before any artifact is written.
	entries, err := os.ReadDir(f.outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunWithStructuredOutput(t *testing.T) {
	rep := &report.TestReport{
		Summary: report.Summary{Total: 2, Passed: 2, Success: true},
		Suites: []report.Suite{{
			Name: "search",
			Tests: []report.TestResult{
				{Name: "finds repos", Status: report.StatusPassed, Duration: 400},
				{Name: "paginates", Status: report.StatusPassed, Duration: 600},
			},
		}},
		Performance: report.Performance{AverageTestDuration: 500},
	}
	data, err := json.Marshal(rep)
	require.NoError(t, err)
	reportFile := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(reportFile, data, 0o644))

	f := newFixture(t, Config{Command: shellCommand("cat " + reportFile)})
	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Report.Summary.Passed)
	assert.NotEmpty(t, result.Report.RunID)
	require.NotNil(t, result.Report.Metrics)

	// First run seeds the baseline store.
	stored := f.store.Load()
	assert.Contains(t, stored, baseline.SuiteKey)
	assert.Contains(t, stored, baseline.Key("search", "finds repos"))

	// Artifacts are always written.
	for _, name := range []string{"report-latest.json", "metrics-latest.json", "analysis-latest.json"} {
		_, err := os.Stat(filepath.Join(f.outputDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunWithTextOutputFallsBack(t *testing.T) {
	f := newFixture(t, Config{Command: shellCommand(`echo "3 passed"; echo "1 failed"`)})
	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Report.Summary.Passed)
	assert.Equal(t, 1, result.Report.Summary.Failed)
}

func TestFailingProcessWithUnparseableOutput(t *testing.T) {
	f := newFixture(t, Config{Command: shellCommand("echo nonsense; exit 1")})
	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Report.Summary.Passed)
	assert.False(t, result.Report.Summary.Success)
}

func TestTimeoutIsConvertedIntoFailure(t *testing.T) {
	f := newFixture(t, Config{
		Command: shellCommand("sleep 5"),
		Timeout: 100 * time.Millisecond,
	})
	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotEmpty(t, result.Report.Suites)
	last := result.Report.Suites[len(result.Report.Suites)-1]
	assert.Equal(t, "harness", last.Name)
	assert.Equal(t, report.StatusFailed, last.Tests[0].Status)
}

func TestRetriesRerunFailingProcess(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "attempted")
	// Fails on the first attempt, succeeds on the second.
	script := `if [ -f ` + marker + ` ]; then echo "1 passed"; else touch ` + marker + `; exit 1; fi`

	f := newFixture(t, Config{Command: shellCommand(script), Retries: 1})
	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Report.Summary.Passed)
}

func TestCriticalRegressionFailsPassingSuite(t *testing.T) {
	writeReport := func(t *testing.T, averageDuration float64) string {
		rep := &report.TestReport{
			Summary: report.Summary{Total: 1, Passed: 1, Success: true},
			Suites: []report.Suite{{
				Name:  "auth",
				Tests: []report.TestResult{{Name: "login", Status: report.StatusPassed, Duration: averageDuration}},
			}},
			Performance: report.Performance{AverageTestDuration: averageDuration},
		}
		data, err := json.Marshal(rep)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	f := newFixture(t, Config{Command: shellCommand("cat " + writeReport(t, 500))})
	result, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)

	// All tests pass, but the suite-wide duration blows the critical ceiling.
	f.runner.Config.Command = shellCommand("cat " + writeReport(t, 15_000))
	result, err = f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Report.Summary.Success)
	require.NotNil(t, result.Analysis)
	assert.Greater(t, result.Analysis.Summary.CriticalIssues, 0)
	assert.False(t, result.Success)
}

func TestBuildArgs(t *testing.T) {
	r := &Runner{Config: Config{
		Command:  []string{"npx", "playwright", "test"},
		Pattern:  "./tests/**/*.spec.ts",
		Reporter: "json",
		Parallel: 4,
	}}
	assert.Equal(t,
		[]string{"playwright", "test", "--reporter=json", "--workers=4", "./tests/**/*.spec.ts"},
		r.buildArgs(),
	)
}
