package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Artifact name prefixes.
const (
	ReportArtifact   = "report"
	AnalysisArtifact = "analysis"
	MetricsArtifact  = "metrics"
	CoverageArtifact = "coverage"
)

const artifactTimeLayout = "20060102-150405"

// ArtifactWriter persists run artifacts under a directory. Every artifact is
// written twice: once under a timestamped filename and once as an overwritten
// "latest" pointer. The latest pointer is always JSON so that other
// subcommands can read it back regardless of the configured format.
type ArtifactWriter struct {
	Dir    string
	Format Formatter
	Ext    string
	// Now is overridable in tests to produce deterministic filenames.
	Now func() time.Time
}

func NewArtifactWriter(dir string, format string) *ArtifactWriter {
	formatter, ext := FormatterByName(format)
	return &ArtifactWriter{
		Dir:    dir,
		Format: formatter,
		Ext:    ext,
		Now:    time.Now,
	}
}

// Write persists v under prefix and updates the latest pointer. It returns
// the path of the timestamped artifact.
func (w *ArtifactWriter) Write(prefix string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	data, err := w.Format(v)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.%s", prefix, w.Now().Format(artifactTimeLayout), w.Ext)
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.WithStack(err)
	}

	latest, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.WriteFile(w.latestPath(prefix), latest, 0o644); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}

// ReadLatest reads the latest pointer for prefix into v.
func (w *ArtifactWriter) ReadLatest(prefix string, v interface{}) error {
	data, err := os.ReadFile(w.latestPath(prefix))
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(json.Unmarshal(data, v))
}

func (w *ArtifactWriter) latestPath(prefix string) string {
	return filepath.Join(w.Dir, prefix+"-latest.json")
}

// Prune removes timestamped artifacts older than maxAge, keeping the latest
// pointers. It returns the number of files removed.
func (w *ArtifactWriter) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}

	cutoff := w.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTimestampedArtifact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.WithError(err).Warnf("could not remove artifact %s", path)
			continue
		}
		removed++
	}
	return removed, nil
}

var artifactPrefixes = []string{ReportArtifact, AnalysisArtifact, MetricsArtifact, CoverageArtifact}

func isTimestampedArtifact(name string) bool {
	for _, prefix := range artifactPrefixes {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix && name != prefix+"-latest.json" {
			return true
		}
	}
	return false
}
