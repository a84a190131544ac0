// Package goals computes goal completion and derives goal status from recorded progress.
package goals

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
)

const (
	onTrackPercent  = 75.0
	midwayPercent   = 50.0
	startedPercent  = 25.0
	atRiskSoonDays  = 14.0
	atRiskFinalDays = 7.0
)

// Update describes the effect of recording one progress entry
type Update struct {
	Progress       tracking.GoalProgress `json:"progress"`
	Percent        float64               `json:"percent"`
	PreviousStatus tracking.GoalStatus   `json:"previous_status"`
	Status         tracking.GoalStatus   `json:"status"`
}

// StatusChanged reports whether the update moved the goal to a new status
func (u Update) StatusChanged() bool {
	return u.PreviousStatus != u.Status
}

// PercentComplete returns progress toward the goal's target in [0,100], rounded to one
// decimal for display. Status decisions use Completion.
func PercentComplete(g tracking.Goal) float64 {
	return RoundPercent(Completion(g))
}

// Completion returns the unrounded progress toward the goal's target in [0,100]
func Completion(g tracking.Goal) float64 {
	if g.TargetDirection == tracking.DirectionDecrease {
		return decreasePercent(baseline(g), g.CurrentValue, g.TargetValue)
	}
	// maintain goals count progress toward holding the target value
	return increasePercent(g.CurrentValue, g.TargetValue)
}

// RoundPercent rounds pct to one decimal. An incomplete goal never rounds up to 100.
func RoundPercent(pct float64) float64 {
	r, err := stats.Round(pct, 1)
	if err != nil {
		return pct
	}
	if pct < 100 && r >= 100 {
		return 99.9
	}
	return r
}

func increasePercent(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return clamp(current/target*100, 0, 100)
}

func decreasePercent(base, current, target float64) float64 {
	switch {
	case current <= target:
		return 100
	case base <= target:
		// started at or below target and has since regressed
		return 0
	}
	return clamp((base-current)/(base-target)*100, 0, 100)
}

// baseline is the first recorded value, or the current value for a goal without history
func baseline(g tracking.Goal) float64 {
	if len(g.ProgressHistory) == 0 {
		return g.CurrentValue
	}
	return g.ProgressHistory[0].Value
}

// DeriveStatus computes the status a goal should have at now given its completion percent.
func DeriveStatus(g tracking.Goal, percent float64, now time.Time) tracking.GoalStatus {
	if g.Status == tracking.GoalDiscontinued {
		return g.Status
	}

	daysLeft := g.TargetDate.Sub(now).Hours() / 24
	switch {
	case percent >= 100:
		return tracking.GoalAchieved
	case percent >= onTrackPercent:
		return tracking.GoalOnTrack
	case percent >= startedPercent:
		if daysLeft < atRiskSoonDays && percent < midwayPercent {
			return tracking.GoalAtRisk
		}
		return tracking.GoalInProgress
	case daysLeft < atRiskFinalDays:
		return tracking.GoalAtRisk
	case g.Status == tracking.GoalNotStarted || g.Status == "":
		return tracking.GoalInProgress
	}
	return g.Status
}

// RecordProgress appends p to the goal's history, makes it the current value and
// recomputes the status. Discontinued goals are left untouched.
func RecordProgress(g *tracking.Goal, p tracking.GoalProgress, now time.Time) (Update, error) {
	if g.Status == tracking.GoalDiscontinued {
		return Update{}, fmt.Errorf("%w: %s", core.ErrGoalClosed, g.ID)
	}
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return Update{}, core.NewValidationError("value", "must be a finite number")
	}

	if p.ID.IsEmpty() {
		p.ID = core.NewID()
	}
	p.GoalID = g.ID
	if p.Date.IsZero() {
		p.Date = now
	}

	g.ProgressHistory = append(g.ProgressHistory, p)
	g.CurrentValue = p.Value

	previous := g.Status
	completion := Completion(*g)
	g.Status = DeriveStatus(*g, completion, now)

	return Update{
		Progress:       p,
		Percent:        RoundPercent(completion),
		PreviousStatus: previous,
		Status:         g.Status,
	}, nil
}

// Discontinue closes a goal; its history is kept.
func Discontinue(g *tracking.Goal) Update {
	previous := g.Status
	g.Status = tracking.GoalDiscontinued
	return Update{
		Percent:        PercentComplete(*g),
		PreviousStatus: previous,
		Status:         g.Status,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
