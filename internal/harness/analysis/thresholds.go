package analysis

// Thresholds gathers every regression, improvement and severity cutoff used by
// the analyzer, so no limit is buried in code. Boundary convention: percentage
// and absolute ceilings use strictly greater-than, floors strictly less-than.
// A change exactly equal to a cutoff never trips it.
type Thresholds struct {
	Duration  DurationThresholds  `mapstructure:"duration"`
	Memory    MemoryThresholds    `mapstructure:"memory"`
	Cache     CacheThresholds     `mapstructure:"cache"`
	ErrorRate ErrorRateThresholds `mapstructure:"errorRate"`

	// BaselineRegressionBudget is the largest fraction of tests that may
	// regress while the run is still promoted into the new baseline.
	BaselineRegressionBudget float64 `mapstructure:"baselineRegressionBudget"`
}

type DurationThresholds struct {
	// An increase beyond this percentage flags the trend as a regression.
	RegressionPercent float64 `mapstructure:"regressionPercent"`
	// A decrease beyond this percentage flags the trend as an improvement.
	ImprovementPercent float64 `mapstructure:"improvementPercent"`
	HighPercent        float64 `mapstructure:"highPercent"`
	MediumPercent      float64 `mapstructure:"mediumPercent"`
	// An absolute duration above this is critical regardless of the baseline.
	CriticalMillis float64 `mapstructure:"criticalMillis"`
}

type MemoryThresholds struct {
	RegressionPercent  float64 `mapstructure:"regressionPercent"`
	ImprovementPercent float64 `mapstructure:"improvementPercent"`
	HighPercent        float64 `mapstructure:"highPercent"`
	MediumPercent      float64 `mapstructure:"mediumPercent"`
	// An absolute usage above this is critical regardless of the baseline.
	CriticalBytes float64 `mapstructure:"criticalBytes"`
}

type CacheThresholds struct {
	// A current hit rate below this absolute floor flags a regression.
	MinHitRate float64 `mapstructure:"minHitRate"`
	// An absolute hit-rate gain beyond this flags an improvement.
	ImprovementGain   float64 `mapstructure:"improvementGain"`
	HighDropPercent   float64 `mapstructure:"highDropPercent"`
	MediumDropPercent float64 `mapstructure:"mediumDropPercent"`
	// A current hit rate below this absolute floor is critical.
	CriticalHitRate float64 `mapstructure:"criticalHitRate"`
}

type ErrorRateThresholds struct {
	RegressionPercent  float64 `mapstructure:"regressionPercent"`
	ImprovementPercent float64 `mapstructure:"improvementPercent"`
	HighPercent        float64 `mapstructure:"highPercent"`
	MediumPercent      float64 `mapstructure:"mediumPercent"`
	// An absolute error rate above this is critical.
	CriticalRate float64 `mapstructure:"criticalRate"`
}

// DefaultThresholds returns the documented default cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Duration: DurationThresholds{
			RegressionPercent:  20,
			ImprovementPercent: 10,
			HighPercent:        50,
			MediumPercent:      30,
			CriticalMillis:     10_000,
		},
		Memory: MemoryThresholds{
			RegressionPercent:  30,
			ImprovementPercent: 10,
			HighPercent:        100,
			MediumPercent:      50,
			CriticalBytes:      500 * 1024 * 1024,
		},
		Cache: CacheThresholds{
			MinHitRate:        0.80,
			ImprovementGain:   0.05,
			HighDropPercent:   30,
			MediumDropPercent: 15,
			CriticalHitRate:   0.5,
		},
		ErrorRate: ErrorRateThresholds{
			RegressionPercent:  5,
			ImprovementPercent: 10,
			HighPercent:        50,
			MediumPercent:      20,
			CriticalRate:       0.10,
		},
		BaselineRegressionBudget: 0.10,
	}
}
