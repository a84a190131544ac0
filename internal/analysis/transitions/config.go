package transitions

import (
	"fmt"

	"sensetrack/domain/core"
)

// Config tunes the transition analyzer
type Config struct {
	// MinSamplesForTrend is the smallest per-activity history that gets a trend test
	MinSamplesForTrend int `json:"min_samples_for_trend"`
	// TrendSignificanceThreshold is the minimum |second-half mean - first-half mean|
	TrendSignificanceThreshold float64 `json:"trend_significance_threshold"`
	// TopTransitionsLimit caps hardest/easiest activities and support strategies
	TopTransitionsLimit int `json:"top_transitions_limit"`
	// MaxHistoryEntries caps each activity's chronological history
	MaxHistoryEntries int `json:"max_history_entries"`
	// RecentDifficultyLimit caps the recent difficulty series
	RecentDifficultyLimit int `json:"recent_difficulty_limit"`
	// MediumConfidenceSamples and HighConfidenceSamples are the confidence steps
	MediumConfidenceSamples int `json:"medium_confidence_samples"`
	HighConfidenceSamples   int `json:"high_confidence_samples"`
	// MinReliableSamples is the total sample size below which a warning is emitted
	MinReliableSamples int  `json:"min_reliable_samples"`
	IncludeWeekly      bool `json:"include_weekly"`
	IncludeMonthly     bool `json:"include_monthly"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MinSamplesForTrend:         6,
		TrendSignificanceThreshold: 1.0,
		TopTransitionsLimit:        5,
		MaxHistoryEntries:          100,
		RecentDifficultyLimit:      20,
		MediumConfidenceSamples:    5,
		HighConfidenceSamples:      10,
		MinReliableSamples:         10,
		IncludeWeekly:              true,
		IncludeMonthly:             true,
	}
}

// Validate rejects configurations that cannot produce meaningful output
func (c Config) Validate() error {
	switch {
	case c.MinSamplesForTrend < 4:
		return fmt.Errorf("%w: min_samples_for_trend must be at least 4 (two per half)", core.ErrInvalidConfig)
	case c.TrendSignificanceThreshold < 0:
		return fmt.Errorf("%w: trend_significance_threshold cannot be negative", core.ErrInvalidConfig)
	case c.TopTransitionsLimit < 1:
		return fmt.Errorf("%w: top_transitions_limit must be positive", core.ErrInvalidConfig)
	case c.MaxHistoryEntries < c.MinSamplesForTrend:
		return fmt.Errorf("%w: max_history_entries must be >= min_samples_for_trend", core.ErrInvalidConfig)
	case c.RecentDifficultyLimit < 1:
		return fmt.Errorf("%w: recent_difficulty_limit must be positive", core.ErrInvalidConfig)
	case c.MediumConfidenceSamples < 1 || c.HighConfidenceSamples <= c.MediumConfidenceSamples:
		return fmt.Errorf("%w: confidence thresholds must satisfy 0 < medium < high", core.ErrInvalidConfig)
	}
	return nil
}
