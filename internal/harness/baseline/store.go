// Package baseline persists the last known-good performance snapshot for each
// test, used as the comparison point for regression detection.
package baseline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SuiteKey is the reserved key under which the whole-suite aggregate baseline
// is stored. Per-test baselines are keyed by Key(suite, test).
const SuiteKey = "__suite__"

const storeFilename = "baselines.json"

// Key returns the composite baseline key for an individual test.
func Key(suiteName, testName string) string {
	return suiteName + "::" + testName
}

// Baseline is the last accepted performance snapshot for a single test or for
// the whole suite.
type Baseline struct {
	Timestamp       time.Time `json:"timestamp"`
	TestName        string    `json:"testName"`
	AverageDuration float64   `json:"averageDuration"` // milliseconds
	MemoryUsage     float64   `json:"memoryUsage"`     // bytes
	APICallCount    int       `json:"apiCallCount"`
	CacheHitRate    float64   `json:"cacheHitRate"`
	ErrorRate       float64   `json:"errorRate"`
}

// Store reads and writes the baseline map from a directory. It is read once at
// the start of analysis and written at most once at the end; concurrent
// analyses against the same directory must be serialized by the caller.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.Dir, storeFilename)
}

// Load reads the stored baseline map. A missing or corrupt store is not an
// error: analysis must always proceed, so both cases yield an empty map, with
// a warning logged for the corrupt case.
func (s *Store) Load() map[string]Baseline {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warnf("could not read baseline store %s; starting from empty baselines", s.path())
		}
		return map[string]Baseline{}
	}
	baselines := map[string]Baseline{}
	if err := json.Unmarshal(data, &baselines); err != nil {
		log.WithError(err).Warnf("baseline store %s is corrupt; starting from empty baselines", s.path())
		return map[string]Baseline{}
	}
	return baselines
}

// Save overwrites the stored baseline map. The write goes through a temp file
// and rename so a crash cannot leave a half-written store behind.
func (s *Store) Save(baselines map[string]Baseline) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	data, err := json.MarshalIndent(baselines, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp, err := os.CreateTemp(s.Dir, storeFilename+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpName, s.path()))
}
