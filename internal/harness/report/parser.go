package report

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"
)

// ParseKind discriminates the possible outcomes of parsing raw test-runner
// output.
type ParseKind int

const (
	// Structured means the output was a well-formed TestReport JSON document.
	Structured ParseKind = iota
	// Fallback means JSON parsing failed but pass/fail/skip counts could be
	// extracted from the output text.
	Fallback
	// Unparseable means nothing could be extracted; counts are zero-filled.
	Unparseable
)

// ParseResult is a tagged union: Report is set only for Structured results,
// Counts only for Fallback and Unparseable (zero-filled in the latter case).
type ParseResult struct {
	Kind   ParseKind
	Report *TestReport
	Counts Summary
}

var (
	passedRegex  = regexp.MustCompile(`(\d+)\s+passed`)
	failedRegex  = regexp.MustCompile(`(\d+)\s+failed`)
	skippedRegex = regexp.MustCompile(`(\d+)\s+skipped`)
)

// Parse converts raw test-runner output into a ParseResult. It attempts
// structured JSON parsing first, then falls back to regex extraction of
// "N passed/failed/skipped" counts. It never fails: output that yields
// nothing produces an Unparseable result with zero-filled counts.
func Parse(output []byte) ParseResult {
	// Probe for a summary field first so that arbitrary JSON (e.g. a bare
	// array of log lines) does not masquerade as a report.
	var probe struct {
		Summary *Summary `json:"summary"`
	}
	if err := json.Unmarshal(output, &probe); err == nil && probe.Summary != nil {
		var rep TestReport
		if err := json.Unmarshal(output, &rep); err == nil {
			return ParseResult{Kind: Structured, Report: &rep}
		}
	}

	counts, found := extractCounts(string(output))
	if !found {
		return ParseResult{Kind: Unparseable}
	}
	return ParseResult{Kind: Fallback, Counts: counts}
}

func extractCounts(output string) (Summary, bool) {
	var counts Summary
	found := false
	if n, ok := extractCount(passedRegex, output); ok {
		counts.Passed = n
		found = true
	}
	if n, ok := extractCount(failedRegex, output); ok {
		counts.Failed = n
		found = true
	}
	if n, ok := extractCount(skippedRegex, output); ok {
		counts.Skipped = n
		found = true
	}
	counts.Total = counts.Passed + counts.Failed + counts.Skipped
	counts.Success = found && counts.Failed == 0
	return counts, found
}

func extractCount(re *regexp.Regexp, output string) (int, bool) {
	match := re.FindStringSubmatch(output)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Normalize converts a ParseResult into a TestReport, so downstream consumers
// always receive a well-formed report regardless of how parsing went.
func (r ParseResult) Normalize() *TestReport {
	if r.Kind == Structured {
		return r.Report
	}
	return &TestReport{
		Summary:   r.Counts,
		Timestamp: time.Now(),
	}
}
