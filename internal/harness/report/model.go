// Package report defines the normalized test-execution report, the parser
// that produces it from raw test-runner output, and the artifact writer.
package report

import (
	"encoding/json"
	"time"

	"github.com/BjornMelin/contribux-sub004/internal/harness/metrics"
)

// Test statuses as reported by the test execution layer.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Summary holds suite-level pass/fail counts.
type Summary struct {
	Total   int  `json:"total"`
	Passed  int  `json:"passed"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
	Success bool `json:"success"`
}

// TestResult is the outcome of one individual test.
type TestResult struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"` // milliseconds
}

// Suite groups the results of one test suite.
type Suite struct {
	Name  string       `json:"name"`
	Tests []TestResult `json:"tests"`
}

// MemoryUsage summarises heap usage over a run, in bytes.
type MemoryUsage struct {
	Peak    uint64 `json:"peak"`
	Average uint64 `json:"average"`
	Growth  int64  `json:"growth"`
}

// Performance holds the suite-wide performance aggregates.
type Performance struct {
	AverageTestDuration float64     `json:"averageTestDuration"` // milliseconds
	MemoryUsage         MemoryUsage `json:"memoryUsage"`
}

// QualityGate is a named pass/fail check evaluated by the test layer.
type QualityGate struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// TestReport is the normalized report for one suite execution. It is the
// input contract of the performance analyzer.
type TestReport struct {
	RunID        string               `json:"runId,omitempty"`
	Summary      Summary              `json:"summary"`
	Suites       []Suite              `json:"suites"`
	Metrics      *metrics.TestMetrics `json:"metrics,omitempty"`
	Performance  Performance          `json:"performance"`
	QualityGates []QualityGate        `json:"qualityGates,omitempty"`
	// Coverage is passed through verbatim when the test layer provides it.
	Coverage    json.RawMessage `json:"coverage,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Duration    float64         `json:"duration"` // milliseconds
	Environment string          `json:"environment,omitempty"`
}
