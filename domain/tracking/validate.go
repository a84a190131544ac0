package tracking

import (
	"strings"

	"sensetrack/domain/core"
)

const (
	MinRating = 1
	MaxRating = 10
)

func checkRating(field string, v int) error {
	if v < MinRating || v > MaxRating {
		return core.NewRangeError(field, float64(v), MinRating, MaxRating)
	}
	return nil
}

func checkOptionalRating(field string, v *int) error {
	if v == nil {
		return nil
	}
	return checkRating(field, *v)
}

// Validate checks ranges and enumerations of a log entry
func (l LogEntry) Validate() error {
	if l.Timestamp.IsZero() {
		return core.NewValidationError("timestamp", "is required")
	}
	if !l.Context.Valid() {
		return core.NewValidationError("context", "must be home or school")
	}
	ratings := []struct {
		field string
		value int
	}{{"arousal", l.Arousal}, {"valence", l.Valence}, {"energy", l.Energy}}
	for _, r := range ratings {
		if err := checkRating(r.field, r.value); err != nil {
			return err
		}
	}
	if !l.StrategyEffectiveness.Valid() {
		return core.NewValidationError("strategy_effectiveness", "is not a known outcome")
	}
	if l.DurationMinutes < 0 {
		return core.NewValidationError("duration_minutes", "cannot be negative")
	}
	return nil
}

// Validate checks ranges and enumerations of a crisis event
func (c CrisisEvent) Validate() error {
	if c.Timestamp.IsZero() {
		return core.NewValidationError("timestamp", "is required")
	}
	if !c.Context.Valid() {
		return core.NewValidationError("context", "must be home or school")
	}
	if !c.Type.Valid() {
		return core.NewValidationError("type", "is not a known crisis type")
	}
	if !c.Resolution.Valid() {
		return core.NewValidationError("resolution", "is not a known resolution")
	}
	if err := checkRating("peak_intensity", c.PeakIntensity); err != nil {
		return err
	}
	if err := checkOptionalRating("preceding_arousal", c.PrecedingArousal); err != nil {
		return err
	}
	if err := checkOptionalRating("preceding_energy", c.PrecedingEnergy); err != nil {
		return err
	}
	if c.DurationSeconds < 0 {
		return core.NewValidationError("duration_seconds", "cannot be negative")
	}
	return nil
}

// Validate checks a schedule entry
func (s ScheduleEntry) Validate() error {
	if s.Date.IsZero() {
		return core.NewValidationError("date", "is required")
	}
	if !s.Context.Valid() {
		return core.NewValidationError("context", "must be home or school")
	}
	if strings.TrimSpace(s.Activity.Title) == "" {
		return core.NewValidationError("activity.title", "is required")
	}
	if !s.Status.Valid() {
		return core.NewValidationError("status", "is not a known schedule status")
	}
	return checkOptionalRating("transition_difficulty", s.TransitionDifficulty)
}

// Validate checks a goal definition
func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return core.NewValidationError("title", "is required")
	}
	if !g.TargetDirection.Valid() {
		return core.NewValidationError("target_direction", "must be increase, decrease or maintain")
	}
	if g.TargetValue < 0 {
		return core.NewRangeError("target_value", g.TargetValue, 0, 1e9)
	}
	if g.TargetDate.IsZero() {
		return core.NewValidationError("target_date", "is required")
	}
	if !g.StartDate.IsZero() && g.TargetDate.Before(g.StartDate) {
		return core.NewValidationError("target_date", "is before start_date")
	}
	return nil
}
