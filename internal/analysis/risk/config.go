package risk

import (
	"fmt"

	"sensetrack/domain/core"
)

// Config tunes the same-weekday risk forecast
type Config struct {
	WindowDays           int     `json:"window_days"`
	MinSameWeekdayLogs   int     `json:"min_same_weekday_logs"`
	HighArousalThreshold int     `json:"high_arousal_threshold"`
	LookaheadHours       int     `json:"lookahead_hours"`
	MinIncidentsPerHour  int     `json:"min_incidents_per_hour"`
	UpcomingRiskBonus    int     `json:"upcoming_risk_bonus"`
	HighScore            int     `json:"high_score"`
	ModerateScore        int     `json:"moderate_score"`
	ElevatedRate         float64 `json:"elevated_rate"`
}

func DefaultConfig() Config {
	return Config{
		WindowDays:           30,
		MinSameWeekdayLogs:   5,
		HighArousalThreshold: 7,
		LookaheadHours:       4,
		MinIncidentsPerHour:  2,
		UpcomingRiskBonus:    30,
		HighScore:            60,
		ModerateScore:        30,
		ElevatedRate:         0.30,
	}
}

func (c Config) Validate() error {
	switch {
	case c.WindowDays < 7:
		return fmt.Errorf("%w: window_days must cover at least one week", core.ErrInvalidConfig)
	case c.MinSameWeekdayLogs < 1:
		return fmt.Errorf("%w: min_same_weekday_logs must be positive", core.ErrInvalidConfig)
	case c.HighArousalThreshold < 1 || c.HighArousalThreshold > 10:
		return fmt.Errorf("%w: high_arousal_threshold must be in [1,10]", core.ErrInvalidConfig)
	case c.LookaheadHours < 0 || c.LookaheadHours > 23:
		return fmt.Errorf("%w: lookahead_hours must be in [0,23]", core.ErrInvalidConfig)
	case c.MinIncidentsPerHour < 1:
		return fmt.Errorf("%w: min_incidents_per_hour must be positive", core.ErrInvalidConfig)
	case c.UpcomingRiskBonus < 0:
		return fmt.Errorf("%w: upcoming_risk_bonus must not be negative", core.ErrInvalidConfig)
	case c.ModerateScore < 0 || c.HighScore <= c.ModerateScore || c.HighScore > 100:
		return fmt.Errorf("%w: need 0 <= moderate_score < high_score <= 100", core.ErrInvalidConfig)
	case c.ElevatedRate <= 0 || c.ElevatedRate >= 1:
		return fmt.Errorf("%w: elevated_rate must be in (0,1)", core.ErrInvalidConfig)
	}
	return nil
}
