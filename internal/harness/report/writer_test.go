package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, format string) *ArtifactWriter {
	w := NewArtifactWriter(t.TempDir(), format)
	w.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC) }
	return w
}

func TestWriteCreatesTimestampedArtifactAndLatestPointer(t *testing.T) {
	w := newTestWriter(t, "json")
	rep := &TestReport{Summary: Summary{Total: 2, Passed: 2, Success: true}}

	path, err := w.Write(ReportArtifact, rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir, "report-20240301-123045.json"), path)

	_, err = os.Stat(filepath.Join(w.Dir, "report-latest.json"))
	assert.NoError(t, err)
}

func TestWriteReadLatestRoundTrip(t *testing.T) {
	w := newTestWriter(t, "json")
	rep := &TestReport{
		RunID:   "run-1",
		Summary: Summary{Total: 5, Passed: 4, Failed: 1},
		Suites: []Suite{{
			Name:  "search",
			Tests: []TestResult{{Name: "filters results", Status: StatusPassed, Duration: 420}},
		}},
		Performance: Performance{AverageTestDuration: 420, MemoryUsage: MemoryUsage{Peak: 2048}},
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	_, err := w.Write(ReportArtifact, rep)
	require.NoError(t, err)

	got := &TestReport{}
	require.NoError(t, w.ReadLatest(ReportArtifact, got))
	assert.Equal(t, rep, got)
}

func TestYamlFormatterArtifact(t *testing.T) {
	w := newTestWriter(t, "yaml")
	path, err := w.Write(MetricsArtifact, map[string]int{"total": 3})
	require.NoError(t, err)
	assert.Equal(t, ".yaml", filepath.Ext(path))

	// The latest pointer stays JSON regardless of the configured format.
	got := map[string]int{}
	require.NoError(t, w.ReadLatest(MetricsArtifact, &got))
	assert.Equal(t, 3, got["total"])
}

func TestPruneRemovesOldTimestampedArtifacts(t *testing.T) {
	w := NewArtifactWriter(t.TempDir(), "json")
	_, err := w.Write(ReportArtifact, &TestReport{})
	require.NoError(t, err)

	old := filepath.Join(w.Dir, "analysis-20200101-000000.json")
	require.NoError(t, os.WriteFile(old, []byte("{}"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := w.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The fresh artifact and the latest pointer survive.
	_, err = os.Stat(filepath.Join(w.Dir, "report-latest.json"))
	assert.NoError(t, err)
}

func TestPruneMissingDirIsNoOp(t *testing.T) {
	w := NewArtifactWriter(filepath.Join(t.TempDir(), "missing"), "json")
	removed, err := w.Prune(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
