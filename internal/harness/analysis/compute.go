// Package analysis compares a test report against stored baselines, flags
// regressions and improvements, classifies severity and synthesizes alert
// intents.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/BjornMelin/contribux-sub004/internal/harness/alert"
	"github.com/BjornMelin/contribux-sub004/internal/harness/baseline"
	"github.com/BjornMelin/contribux-sub004/internal/harness/report"
)

// Severity of a single-metric regression.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Metric names a baseline dimension that can regress.
type Metric string

const (
	MetricDuration     Metric = "duration"
	MetricMemory       Metric = "memory"
	MetricCacheHitRate Metric = "cacheHitRate"
	MetricErrorRate    Metric = "errorRate"
)

// Trend pairs a stored baseline with the current measurement for one test.
type Trend struct {
	TestName      string            `json:"testName"`
	Baseline      baseline.Baseline `json:"baseline"`
	Current       baseline.Baseline `json:"current"`
	ChangePercent float64           `json:"changePercent"` // on duration
	Regression    bool              `json:"regression"`
	Improvement   bool              `json:"improvement"`
	Analysis      string            `json:"analysis"`
}

// Regression is one (test, metric) pair that breached a threshold.
type Regression struct {
	TestName          string   `json:"testName"`
	Metric            Metric   `json:"metric"`
	Baseline          float64  `json:"baseline"`
	Current           float64  `json:"current"`
	RegressionPercent float64  `json:"regressionPercent"`
	Severity          Severity `json:"severity"`
	Recommendation    string   `json:"recommendation"`
}

// Summary counts the outcome of one analysis.
type Summary struct {
	TotalTests     int `json:"totalTests"`
	Regressions    int `json:"regressions"`
	Improvements   int `json:"improvements"`
	Stable         int `json:"stable"`
	CriticalIssues int `json:"criticalIssues"`
}

// Analysis is the top-level analyzer output.
type Analysis struct {
	RunID           string         `json:"runId,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Summary         Summary        `json:"summary"`
	Trends          []Trend        `json:"trends"`
	Regressions     []Regression   `json:"regressions"`
	Recommendations []string       `json:"recommendations"`
	Alerting        []alert.Intent `json:"alerting"`
}

// ExtractCurrent derives the current baseline set from a report: one
// whole-suite aggregate under baseline.SuiteKey, plus one entry per passed
// test. Failed and skipped tests contribute no baseline since their timing is
// not representative.
func ExtractCurrent(rep *report.TestReport) map[string]baseline.Baseline {
	now := time.Now()
	suite := baseline.Baseline{
		Timestamp:       now,
		TestName:        baseline.SuiteKey,
		AverageDuration: rep.Performance.AverageTestDuration,
		MemoryUsage:     float64(rep.Performance.MemoryUsage.Peak),
	}
	if rep.Metrics != nil {
		suite.APICallCount = rep.Metrics.APICalls.Total
		suite.CacheHitRate = rep.Metrics.Cache.HitRate
		suite.ErrorRate = rep.Metrics.APICalls.ErrorRate
	}

	current := map[string]baseline.Baseline{baseline.SuiteKey: suite}
	for _, s := range rep.Suites {
		for _, t := range s.Tests {
			if t.Status != report.StatusPassed {
				continue
			}
			key := baseline.Key(s.Name, t.Name)
			// Individual tests are only timed; the remaining metrics are
			// observed suite-wide, so each test inherits the aggregates.
			current[key] = baseline.Baseline{
				Timestamp:       now,
				TestName:        key,
				AverageDuration: t.Duration,
				MemoryUsage:     suite.MemoryUsage,
				CacheHitRate:    suite.CacheHitRate,
				ErrorRate:       suite.ErrorRate,
			}
		}
	}
	return current
}

// Compute compares the current baseline extraction against the stored set and
// produces the full analysis. It is pure: no I/O, no clock reads beyond the
// result timestamp.
func Compute(current, stored map[string]baseline.Baseline, t Thresholds) *Analysis {
	analysis := &Analysis{
		Timestamp:       time.Now(),
		Trends:          []Trend{},
		Regressions:     []Regression{},
		Recommendations: []string{},
		Alerting:        []alert.Intent{},
	}

	// Tests with no prior baseline produce no trend: a new test is not a
	// regression. Keys are sorted so output is deterministic.
	keys := make([]string, 0, len(current))
	for key := range current {
		if _, ok := stored[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		trend := computeTrend(key, stored[key], current[key], t)
		analysis.Trends = append(analysis.Trends, trend)

		switch {
		case trend.Regression:
			analysis.Summary.Regressions++
		case trend.Improvement:
			analysis.Summary.Improvements++
		}

		if trend.Regression {
			rows := regressionRows(key, stored[key], current[key], t)
			analysis.Regressions = append(analysis.Regressions, rows...)
		}
	}

	analysis.Summary.TotalTests = len(analysis.Trends)
	analysis.Summary.Stable = analysis.Summary.TotalTests - analysis.Summary.Regressions - analysis.Summary.Improvements

	for _, row := range analysis.Regressions {
		if row.Severity == SeverityCritical {
			analysis.Summary.CriticalIssues++
		}
	}

	analysis.Recommendations = collectRecommendations(analysis.Regressions)
	analysis.Alerting = synthesizeAlerts(analysis.Regressions)
	return analysis
}

func computeTrend(key string, stored, current baseline.Baseline, t Thresholds) Trend {
	trend := Trend{
		TestName:      key,
		Baseline:      stored,
		Current:       current,
		ChangePercent: percentChange(stored.AverageDuration, current.AverageDuration),
	}
	trend.Regression = isRegression(stored, current, t)
	// A trend is never both: once regressed, improvements elsewhere don't count.
	trend.Improvement = !trend.Regression && isImprovement(stored, current, t)
	trend.Analysis = describeTrend(trend)
	return trend
}

func isRegression(stored, current baseline.Baseline, t Thresholds) bool {
	if percentChange(stored.AverageDuration, current.AverageDuration) > t.Duration.RegressionPercent {
		return true
	}
	if percentChange(stored.MemoryUsage, current.MemoryUsage) > t.Memory.RegressionPercent {
		return true
	}
	// The absolute hit-rate floor only applies when the cache saw traffic in
	// either run; a rate of zero with no samples means "no data", not "0%".
	if (current.CacheHitRate > 0 || stored.CacheHitRate > 0) && current.CacheHitRate < t.Cache.MinHitRate {
		return true
	}
	if percentChange(stored.ErrorRate, current.ErrorRate) > t.ErrorRate.RegressionPercent {
		return true
	}
	if current.AverageDuration > t.Duration.CriticalMillis {
		return true
	}
	if current.MemoryUsage > t.Memory.CriticalBytes {
		return true
	}
	return false
}

func isImprovement(stored, current baseline.Baseline, t Thresholds) bool {
	if percentChange(stored.AverageDuration, current.AverageDuration) < -t.Duration.ImprovementPercent {
		return true
	}
	if percentChange(stored.MemoryUsage, current.MemoryUsage) < -t.Memory.ImprovementPercent {
		return true
	}
	if current.CacheHitRate-stored.CacheHitRate > t.Cache.ImprovementGain {
		return true
	}
	if percentChange(stored.ErrorRate, current.ErrorRate) < -t.ErrorRate.ImprovementPercent {
		return true
	}
	return false
}

// regressionRows tests each metric independently and emits one row per metric
// that actually worsened. A single regressed trend can yield zero to four rows.
func regressionRows(key string, stored, current baseline.Baseline, t Thresholds) []Regression {
	var rows []Regression
	if current.AverageDuration > stored.AverageDuration {
		rows = append(rows, newRegression(key, MetricDuration, stored.AverageDuration, current.AverageDuration, t))
	}
	if current.MemoryUsage > stored.MemoryUsage {
		rows = append(rows, newRegression(key, MetricMemory, stored.MemoryUsage, current.MemoryUsage, t))
	}
	if current.CacheHitRate < stored.CacheHitRate {
		rows = append(rows, newRegression(key, MetricCacheHitRate, stored.CacheHitRate, current.CacheHitRate, t))
	}
	if current.ErrorRate > stored.ErrorRate {
		rows = append(rows, newRegression(key, MetricErrorRate, stored.ErrorRate, current.ErrorRate, t))
	}
	return rows
}

func newRegression(key string, metric Metric, storedValue, currentValue float64, t Thresholds) Regression {
	return Regression{
		TestName:          key,
		Metric:            metric,
		Baseline:          storedValue,
		Current:           currentValue,
		RegressionPercent: math.Abs(percentChange(storedValue, currentValue)),
		Severity:          severity(metric, storedValue, currentValue, t),
		Recommendation:    recommendation(metric),
	}
}

func severity(metric Metric, storedValue, currentValue float64, t Thresholds) Severity {
	change := math.Abs(percentChange(storedValue, currentValue))
	switch metric {
	case MetricDuration:
		if currentValue > t.Duration.CriticalMillis {
			return SeverityCritical
		}
		return tiered(change, t.Duration.HighPercent, t.Duration.MediumPercent)
	case MetricMemory:
		if currentValue > t.Memory.CriticalBytes {
			return SeverityCritical
		}
		return tiered(change, t.Memory.HighPercent, t.Memory.MediumPercent)
	case MetricCacheHitRate:
		if currentValue < t.Cache.CriticalHitRate {
			return SeverityCritical
		}
		return tiered(change, t.Cache.HighDropPercent, t.Cache.MediumDropPercent)
	case MetricErrorRate:
		if currentValue > t.ErrorRate.CriticalRate {
			return SeverityCritical
		}
		return tiered(change, t.ErrorRate.HighPercent, t.ErrorRate.MediumPercent)
	}
	return SeverityLow
}

func tiered(changePercent, highPercent, mediumPercent float64) Severity {
	if changePercent > highPercent {
		return SeverityHigh
	}
	if changePercent > mediumPercent {
		return SeverityMedium
	}
	return SeverityLow
}

func recommendation(metric Metric) string {
	switch metric {
	case MetricDuration:
		return "Test duration increased; profile the test for slow operations and review recent changes to hot paths."
	case MetricMemory:
		return "Memory usage increased; check for leaks and inefficient data structures."
	case MetricCacheHitRate:
		return "Cache hit rate dropped; review cache configuration, TTLs and key generation."
	case MetricErrorRate:
		return "Error rate increased; investigate API reliability and rate limiting."
	}
	return ""
}

func collectRecommendations(rows []Regression) []string {
	seen := map[string]bool{}
	recommendations := []string{}
	for _, row := range rows {
		if seen[row.Recommendation] {
			continue
		}
		seen[row.Recommendation] = true
		recommendations = append(recommendations, row.Recommendation)
	}
	return recommendations
}

// synthesizeAlerts emits one intent per high or critical regression row.
// Low and medium regressions are recorded in the analysis but never alerted.
func synthesizeAlerts(rows []Regression) []alert.Intent {
	intents := []alert.Intent{}
	for _, row := range rows {
		if row.Severity != SeverityHigh && row.Severity != SeverityCritical {
			continue
		}
		intents = append(intents, alert.Intent{
			Type:     alert.TypeSlack,
			Severity: string(row.Severity),
			Message: fmt.Sprintf(
				"%s regression in %s: %.2f -> %.2f (%.1f%%)",
				row.Metric, row.TestName, row.Baseline, row.Current, row.RegressionPercent,
			),
			Data: map[string]interface{}{
				"testName":          row.TestName,
				"metric":            string(row.Metric),
				"baseline":          row.Baseline,
				"current":           row.Current,
				"regressionPercent": row.RegressionPercent,
			},
		})
	}
	return intents
}

func describeTrend(trend Trend) string {
	switch {
	case trend.Regression:
		return fmt.Sprintf("%s regressed: duration changed %s vs baseline", trend.TestName, formatPercent(trend.ChangePercent))
	case trend.Improvement:
		return fmt.Sprintf("%s improved: duration changed %s vs baseline", trend.TestName, formatPercent(trend.ChangePercent))
	default:
		return fmt.Sprintf("%s is stable (duration %s vs baseline)", trend.TestName, formatPercent(trend.ChangePercent))
	}
}

func formatPercent(p float64) string {
	s := fmt.Sprintf("%+.1f%%", p)
	return strings.Replace(s, "+0.0", "0.0", 1)
}

// percentChange follows the convention that growing from a zero baseline is a
// 100% change and zero to zero is no change.
func percentChange(oldValue, newValue float64) float64 {
	if oldValue == 0 {
		if newValue == 0 {
			return 0
		}
		return 100
	}
	return ((newValue - oldValue) / oldValue) * 100
}
