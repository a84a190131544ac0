package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"sensetrack/domain/tracking"
)

// Level is the forecast risk band
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Result is a same-weekday risk forecast for the hours following now
type Result struct {
	Level               Level    `json:"level"`
	Score               int      `json:"score"`
	ContributingFactors []string `json:"contributing_factors"`
	// PredictedHighArousalWindow is set only when an upcoming risk hour exists
	PredictedHighArousalWindow string  `json:"predicted_high_arousal_window,omitempty"`
	SameWeekdayLogs            int     `json:"same_weekday_logs"`
	HighArousalRate            float64 `json:"high_arousal_rate"`
}

// Forecaster scores the risk of high arousal later today from recent same-weekday logs
type Forecaster struct {
	cfg Config
}

func NewForecaster(cfg Config) (*Forecaster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Forecaster{cfg: cfg}, nil
}

// Config returns the forecaster's configuration
func (f *Forecaster) Config() Config {
	return f.cfg
}

// Forecast runs the forecast with the default configuration
func Forecast(logs []tracking.LogEntry, now time.Time) Result {
	return (&Forecaster{cfg: DefaultConfig()}).Forecast(logs, now)
}

// Forecast evaluates logs against now. Weekday and hour of each log are taken in now's location.
func (f *Forecaster) Forecast(logs []tracking.LogEntry, now time.Time) Result {
	if len(logs) == 0 {
		return Result{Level: LevelLow, ContributingFactors: []string{}}
	}

	loc := now.Location()
	since := now.AddDate(0, 0, -f.cfg.WindowDays)
	weekday := now.Weekday()
	dayName := tracking.WeekdayName(weekday)

	var sameDay []tracking.LogEntry
	for _, l := range logs {
		ts := l.Timestamp.In(loc)
		if ts.Before(since) || ts.After(now) {
			continue
		}
		if ts.Weekday() == weekday {
			sameDay = append(sameDay, l)
		}
	}

	if len(sameDay) < f.cfg.MinSameWeekdayLogs {
		return Result{
			Level:           LevelLow,
			SameWeekdayLogs: len(sameDay),
			ContributingFactors: []string{fmt.Sprintf(
				"Not enough data: only %d %s logs in the last %d days (need %d)",
				len(sameDay), dayName, f.cfg.WindowDays, f.cfg.MinSameWeekdayLogs)},
		}
	}

	var hourly [24]int
	high := 0
	for _, l := range sameDay {
		if l.Arousal >= f.cfg.HighArousalThreshold {
			high++
			hourly[l.Timestamp.In(loc).Hour()]++
		}
	}
	rate := float64(high) / float64(len(sameDay))

	score := int(math.Round(rate * 100))
	peak, found := f.upcomingPeak(hourly, now.Hour())
	if found {
		score += f.cfg.UpcomingRiskBonus
	}
	score = clamp(score, 0, 100)

	res := Result{
		Level:           f.level(score),
		Score:           score,
		SameWeekdayLogs: len(sameDay),
		HighArousalRate: rate,
	}
	if r, err := stats.Round(rate, 3); err == nil {
		res.HighArousalRate = r
	}

	switch {
	case found:
		res.PredictedHighArousalWindow = hourWindow(peak)
		res.ContributingFactors = []string{fmt.Sprintf(
			"High arousal has clustered around %s on recent %ss (%d incidents)",
			res.PredictedHighArousalWindow, dayName, hourly[peak])}
	case rate > f.cfg.ElevatedRate:
		res.ContributingFactors = []string{fmt.Sprintf(
			"Elevated stress: %.0f%% of recent %s logs show high arousal", rate*100, dayName)}
	default:
		res.ContributingFactors = []string{fmt.Sprintf(
			"Calm period: high arousal is uncommon on recent %ss", dayName)}
	}
	return res
}

// upcomingPeak finds the hour within the lookahead (current hour included, wrapping past
// midnight) with the most incidents at or above the minimum; ties go to the sooner hour.
func (f *Forecaster) upcomingPeak(hourly [24]int, current int) (int, bool) {
	peak, best := -1, 0
	for delta := 0; delta <= f.cfg.LookaheadHours; delta++ {
		h := (current + delta) % 24
		if hourly[h] >= f.cfg.MinIncidentsPerHour && hourly[h] > best {
			peak, best = h, hourly[h]
		}
	}
	return peak, peak >= 0
}

func (f *Forecaster) level(score int) Level {
	switch {
	case score >= f.cfg.HighScore:
		return LevelHigh
	case score >= f.cfg.ModerateScore:
		return LevelModerate
	default:
		return LevelLow
	}
}

func hourWindow(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, (h+1)%24)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
