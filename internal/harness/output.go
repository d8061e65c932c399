package harness

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/BjornMelin/contribux-sub004/internal/harness/analysis"
	"github.com/BjornMelin/contribux-sub004/internal/harness/report"
)

// Report prints the latest persisted analysis in full.
func (a *App) Report(_ context.Context) error {
	analysisResult := &analysis.Analysis{}
	if err := a.writer().ReadLatest(report.AnalysisArtifact, analysisResult); err != nil {
		return err
	}
	a.printAnalysis(analysisResult)
	return nil
}

// Status prints a one-screen summary of the latest analysis.
func (a *App) Status(_ context.Context) error {
	analysisResult := &analysis.Analysis{}
	if err := a.writer().ReadLatest(report.AnalysisArtifact, analysisResult); err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Run:\t%s\n", analysisResult.RunID)
	fmt.Fprintf(w, "Analyzed:\t%s\n", analysisResult.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Tests with baselines:\t%d\n", analysisResult.Summary.TotalTests)
	fmt.Fprintf(w, "Regressions:\t%d\n", analysisResult.Summary.Regressions)
	fmt.Fprintf(w, "Improvements:\t%d\n", analysisResult.Summary.Improvements)
	fmt.Fprintf(w, "Stable:\t%d\n", analysisResult.Summary.Stable)
	fmt.Fprintf(w, "Critical issues:\t%d\n", analysisResult.Summary.CriticalIssues)
	return nil
}

func (a *App) printAnalysis(analysisResult *analysis.Analysis) {
	s := analysisResult.Summary
	fmt.Fprintf(a.Out, "\nPerformance analysis:\n")
	fmt.Fprintf(a.Out, "\t%d test(s) with baselines: %d regression(s), %d improvement(s), %d stable, %d critical issue(s)\n",
		s.TotalTests, s.Regressions, s.Improvements, s.Stable, s.CriticalIssues)

	if len(analysisResult.Regressions) > 0 {
		fmt.Fprintf(a.Out, "\nRegressions:\n")
		for _, row := range analysisResult.Regressions {
			fmt.Fprintf(a.Out, "\t* [%s] %s %s: %.2f -> %.2f (%.1f%%)\n",
				row.Severity, row.TestName, row.Metric, row.Baseline, row.Current, row.RegressionPercent)
		}
	}
	if len(analysisResult.Recommendations) > 0 {
		fmt.Fprintf(a.Out, "\nRecommendations:\n")
		for _, recommendation := range analysisResult.Recommendations {
			fmt.Fprintf(a.Out, "\t- %s\n", recommendation)
		}
	}
}
