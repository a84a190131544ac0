package contexts

import (
	"fmt"

	"sensetrack/domain/core"
)

// Config tunes the home/school comparison
type Config struct {
	MinLogsPerContext  int `json:"min_logs_per_context"`
	TopTriggersLimit   int `json:"top_triggers_limit"`
	TopStrategiesLimit int `json:"top_strategies_limit"`
	// SignificantDifferenceThreshold is in percentage points, for trigger
	// prevalence and strategy success-rate differences
	SignificantDifferenceThreshold float64 `json:"significant_difference_threshold"`
	// StrongDifferenceThreshold escalates a strategy difference to high
	StrongDifferenceThreshold float64 `json:"strong_difference_threshold"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MinLogsPerContext:              5,
		TopTriggersLimit:               5,
		TopStrategiesLimit:             5,
		SignificantDifferenceThreshold: 20,
		StrongDifferenceThreshold:      30,
	}
}

// Validate rejects unusable configurations
func (c Config) Validate() error {
	switch {
	case c.MinLogsPerContext < 2:
		return fmt.Errorf("%w: min_logs_per_context must be at least 2", core.ErrInvalidConfig)
	case c.TopTriggersLimit < 1 || c.TopStrategiesLimit < 1:
		return fmt.Errorf("%w: top limits must be positive", core.ErrInvalidConfig)
	case c.SignificantDifferenceThreshold <= 0 || c.SignificantDifferenceThreshold > 100:
		return fmt.Errorf("%w: significant_difference_threshold must be in (0,100]", core.ErrInvalidConfig)
	case c.StrongDifferenceThreshold < c.SignificantDifferenceThreshold:
		return fmt.Errorf("%w: strong_difference_threshold must be >= significant_difference_threshold", core.ErrInvalidConfig)
	}
	return nil
}
