package analysis

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/BjornMelin/contribux-sub004/internal/harness/baseline"
	"github.com/BjornMelin/contribux-sub004/internal/harness/report"
)

// Analyzer ties the pure computation to its side effects: loading the
// baseline store, persisting the analysis artifact, and conditionally
// ratcheting the baselines forward.
type Analyzer struct {
	Store      *baseline.Store
	Writer     *report.ArtifactWriter
	Thresholds Thresholds
}

func NewAnalyzer(store *baseline.Store, writer *report.ArtifactWriter, thresholds Thresholds) *Analyzer {
	return &Analyzer{
		Store:      store,
		Writer:     writer,
		Thresholds: thresholds,
	}
}

// Analyze runs the full analysis cycle for one report. The analysis artifact
// is persisted regardless of outcome; the baseline store is overwritten only
// when the run is stable enough to become the new normal.
func (a *Analyzer) Analyze(rep *report.TestReport) (*Analysis, error) {
	stored := a.Store.Load()
	current := ExtractCurrent(rep)

	analysis := Compute(current, stored, a.Thresholds)
	analysis.RunID = rep.RunID
	if analysis.RunID == "" {
		analysis.RunID = uuid.NewString()
	}

	path, err := a.Writer.Write(report.AnalysisArtifact, analysis)
	if err != nil {
		return analysis, err
	}
	log.Infof("analysis written to %s", path)

	if a.shouldPromoteBaselines(analysis) {
		if err := a.Store.Save(current); err != nil {
			return analysis, err
		}
		log.Infof("baselines updated for %d test(s)", len(current))
	} else {
		log.Warnf(
			"baselines left unchanged: %d regression(s), %d critical issue(s)",
			analysis.Summary.Regressions, analysis.Summary.CriticalIssues,
		)
	}
	return analysis, nil
}

// shouldPromoteBaselines is the self-calibration rule: only a mostly stable
// run ratchets the baseline forward. A run with any critical issue, or with
// regressions beyond the budget, keeps the previous baselines so a systemic
// regression does not quietly become the new normal.
func (a *Analyzer) shouldPromoteBaselines(analysis *Analysis) bool {
	if analysis.Summary.CriticalIssues > 0 {
		return false
	}
	budget := a.Thresholds.BaselineRegressionBudget * float64(analysis.Summary.TotalTests)
	return float64(analysis.Summary.Regressions) <= budget
}
