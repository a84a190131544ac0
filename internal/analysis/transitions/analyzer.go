package transitions

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/significance"
)

// Trend is the direction of an activity's transition difficulty over time
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// Confidence grades how much data backs an activity's statistics
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// DifficultyPoint is one rated transition in an activity's history
type DifficultyPoint struct {
	Date       time.Time `json:"date"`
	Difficulty int       `json:"difficulty"`
}

// ActivityStats summarises the transitions into one activity
type ActivityStats struct {
	Activity          string            `json:"activity"`
	AverageDifficulty float64           `json:"average_difficulty"`
	StdDev            float64           `json:"std_dev"`
	Count             int               `json:"count"`
	Trend             Trend             `json:"trend"`
	TrendPValue       float64           `json:"trend_p_value"`
	FirstHalfAverage  float64           `json:"first_half_average,omitempty"`
	SecondHalfAverage float64           `json:"second_half_average,omitempty"`
	Confidence        Confidence        `json:"confidence"`
	History           []DifficultyPoint `json:"history"`
}

// SupportEffectiveness is how transitions went when a support was used; lower is better
type SupportEffectiveness struct {
	Strategy          string  `json:"strategy"`
	UsageCount        int     `json:"usage_count"`
	AverageDifficulty float64 `json:"average_difficulty"`
}

// RecentPoint is one entry of the charting series
type RecentPoint struct {
	Date       time.Time `json:"date"`
	Activity   string    `json:"activity"`
	Difficulty int       `json:"difficulty"`
}

// PeriodStats aggregates difficulty over a calendar week or month
type PeriodStats struct {
	Period            string  `json:"period"`
	AverageDifficulty float64 `json:"average_difficulty"`
	Count             int     `json:"count"`
}

// Stats is the full transition analysis
type Stats struct {
	TotalTransitions   int                    `json:"total_transitions"`
	AverageDifficulty  float64                `json:"average_difficulty"`
	Activities         []ActivityStats        `json:"activities"`
	HardestTransitions []ActivityStats        `json:"hardest_transitions"`
	EasiestTransitions []ActivityStats        `json:"easiest_transitions"`
	EffectiveSupports  []SupportEffectiveness `json:"effective_supports"`
	RecentDifficulties []RecentPoint          `json:"recent_difficulties"`
	WeeklyTrends       []PeriodStats          `json:"weekly_trends"`
	MonthlyTrends      []PeriodStats          `json:"monthly_trends"`
	DataStart          time.Time              `json:"data_start"`
	DataEnd            time.Time              `json:"data_end"`
	ConfidenceWarning  string                 `json:"confidence_warning,omitempty"`
}

func emptyStats() Stats {
	return Stats{
		Activities:         []ActivityStats{},
		HardestTransitions: []ActivityStats{},
		EasiestTransitions: []ActivityStats{},
		EffectiveSupports:  []SupportEffectiveness{},
		RecentDifficulties: []RecentPoint{},
		WeeklyTrends:       []PeriodStats{},
		MonthlyTrends:      []PeriodStats{},
	}
}

// Analyzer computes transition statistics from schedule entries
type Analyzer struct {
	cfg Config
}

// NewAnalyzer validates cfg and returns an analyzer
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the analyzer's configuration
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Calculate analyses entries with the default configuration
func Calculate(entries []tracking.ScheduleEntry) Stats {
	return (&Analyzer{cfg: DefaultConfig()}).Calculate(entries)
}

// activityGroup accumulates one activity's difficulties. Only the most recent
// points are retained; count and sums cover every entry.
type activityGroup struct {
	title   string
	count   int
	sum     float64
	sumSq   float64
	history []DifficultyPoint
}

// add records p, compacting history back to the last limit points once it doubles
func (g *activityGroup) add(p DifficultyPoint, limit int) {
	v := float64(p.Difficulty)
	g.count++
	g.sum += v
	g.sumSq += v * v
	g.history = append(g.history, p)
	if len(g.history) >= 2*limit {
		g.history = append([]DifficultyPoint(nil), g.history[len(g.history)-limit:]...)
	}
}

func (g *activityGroup) stdDevPopulation() float64 {
	mean := g.sum / float64(g.count)
	variance := g.sumSq/float64(g.count) - mean*mean
	if variance <= 0 || math.IsNaN(variance) {
		return 0
	}
	return math.Sqrt(variance)
}

// Calculate analyses completed, rated entries. The input slice is not modified.
func (a *Analyzer) Calculate(entries []tracking.ScheduleEntry) Stats {
	valid := make([]tracking.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status == tracking.StatusCompleted && e.TransitionDifficulty != nil {
			valid = append(valid, e)
		}
	}
	if len(valid) == 0 {
		return emptyStats()
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Date.Before(valid[j].Date)
	})

	groups := make(map[string]*activityGroup)
	all := make([]float64, 0, len(valid))
	for _, e := range valid {
		d := *e.TransitionDifficulty
		g, ok := groups[e.Activity.Title]
		if !ok {
			g = &activityGroup{title: e.Activity.Title}
			groups[e.Activity.Title] = g
		}
		g.add(DifficultyPoint{Date: e.Date, Difficulty: d}, a.cfg.MaxHistoryEntries)
		all = append(all, float64(d))
	}

	result := emptyStats()
	result.TotalTransitions = len(valid)
	result.AverageDifficulty, _ = stats.Mean(all)
	result.DataStart = valid[0].Date
	result.DataEnd = valid[len(valid)-1].Date

	titles := make([]string, 0, len(groups))
	for title := range groups {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	lowConfidence := 0
	for _, title := range titles {
		activity := a.summarise(groups[title])
		if activity.Confidence == ConfidenceLow {
			lowConfidence++
		}
		result.Activities = append(result.Activities, activity)
	}

	result.HardestTransitions = a.rankActivities(result.Activities, true)
	result.EasiestTransitions = a.rankActivities(result.Activities, false)
	result.EffectiveSupports = a.supportEffectiveness(valid)
	result.RecentDifficulties = a.recentSeries(valid)
	if a.cfg.IncludeWeekly {
		result.WeeklyTrends = aggregate(valid, func(t time.Time) string {
			return core.StartOfISOWeek(t).Format(core.DateLayout)
		})
	}
	if a.cfg.IncludeMonthly {
		result.MonthlyTrends = aggregate(valid, func(t time.Time) string {
			return t.Format(core.MonthLayout)
		})
	}
	result.ConfidenceWarning = a.confidenceWarning(len(valid), lowConfidence, len(result.Activities))

	return result
}

func (a *Analyzer) summarise(g *activityGroup) ActivityStats {
	count := g.count
	stdDev := g.stdDevPopulation()

	history := g.history
	if len(history) > a.cfg.MaxHistoryEntries {
		history = append([]DifficultyPoint(nil), history[len(history)-a.cfg.MaxHistoryEntries:]...)
	}

	activity := ActivityStats{
		Activity:          g.title,
		AverageDifficulty: g.sum / float64(count),
		StdDev:            stdDev,
		Count:             count,
		Trend:             TrendStable,
		TrendPValue:       1,
		Confidence:        a.confidence(count),
		History:           history,
	}

	if len(history) >= a.cfg.MinSamplesForTrend {
		mid := len(history) / 2
		test := significance.WelchTTest(difficulties(history[:mid]), difficulties(history[mid:]))
		activity.TrendPValue = test.PValue
		activity.FirstHalfAverage = test.Mean1
		activity.SecondHalfAverage = test.Mean2

		delta := test.Mean2 - test.Mean1
		if test.Significant && math.Abs(delta) > a.cfg.TrendSignificanceThreshold {
			if delta < 0 {
				activity.Trend = TrendImproving
			} else {
				activity.Trend = TrendWorsening
			}
		}
	}

	return activity
}

func (a *Analyzer) confidence(count int) Confidence {
	switch {
	case count >= a.cfg.HighConfidenceSamples:
		return ConfidenceHigh
	case count >= a.cfg.MediumConfidenceSamples:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func (a *Analyzer) rankActivities(activities []ActivityStats, hardestFirst bool) []ActivityStats {
	ranked := append([]ActivityStats(nil), activities...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AverageDifficulty != ranked[j].AverageDifficulty {
			if hardestFirst {
				return ranked[i].AverageDifficulty > ranked[j].AverageDifficulty
			}
			return ranked[i].AverageDifficulty < ranked[j].AverageDifficulty
		}
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Activity < ranked[j].Activity
	})
	if len(ranked) > a.cfg.TopTransitionsLimit {
		ranked = ranked[:a.cfg.TopTransitionsLimit]
	}
	return ranked
}

func (a *Analyzer) supportEffectiveness(valid []tracking.ScheduleEntry) []SupportEffectiveness {
	type acc struct {
		count int
		sum   float64
	}
	bySupport := make(map[string]*acc)
	for _, e := range valid {
		// a tag counts once per entry
		for _, tag := range tracking.UniqueTags(e.TransitionSupport) {
			s, ok := bySupport[tag]
			if !ok {
				s = &acc{}
				bySupport[tag] = s
			}
			s.count++
			s.sum += float64(*e.TransitionDifficulty)
		}
	}

	supports := make([]SupportEffectiveness, 0, len(bySupport))
	for tag, s := range bySupport {
		supports = append(supports, SupportEffectiveness{
			Strategy:          tag,
			UsageCount:        s.count,
			AverageDifficulty: s.sum / float64(s.count),
		})
	}
	sort.Slice(supports, func(i, j int) bool {
		if supports[i].AverageDifficulty != supports[j].AverageDifficulty {
			return supports[i].AverageDifficulty < supports[j].AverageDifficulty
		}
		if supports[i].UsageCount != supports[j].UsageCount {
			return supports[i].UsageCount > supports[j].UsageCount
		}
		return supports[i].Strategy < supports[j].Strategy
	})
	if len(supports) > a.cfg.TopTransitionsLimit {
		supports = supports[:a.cfg.TopTransitionsLimit]
	}
	return supports
}

func (a *Analyzer) recentSeries(valid []tracking.ScheduleEntry) []RecentPoint {
	start := 0
	if len(valid) > a.cfg.RecentDifficultyLimit {
		start = len(valid) - a.cfg.RecentDifficultyLimit
	}
	recent := make([]RecentPoint, 0, len(valid)-start)
	for _, e := range valid[start:] {
		recent = append(recent, RecentPoint{
			Date:       e.Date,
			Activity:   e.Activity.Title,
			Difficulty: *e.TransitionDifficulty,
		})
	}
	return recent
}

func (a *Analyzer) confidenceWarning(total, lowConfidence, activities int) string {
	switch {
	case total < a.cfg.MinReliableSamples:
		return fmt.Sprintf("Limited data: only %d rated transitions recorded. Patterns may change as more transitions are logged.", total)
	case lowConfidence > 0:
		return fmt.Sprintf("%d of %d activities have fewer than %d rated transitions; treat their averages and trends as low confidence.",
			lowConfidence, activities, a.cfg.MediumConfidenceSamples)
	}
	return ""
}

// aggregate groups sorted entries by a period key; keys sort chronologically
func aggregate(valid []tracking.ScheduleEntry, key func(time.Time) string) []PeriodStats {
	type acc struct {
		count int
		sum   float64
	}
	byPeriod := make(map[string]*acc)
	for _, e := range valid {
		k := key(e.Date)
		p, ok := byPeriod[k]
		if !ok {
			p = &acc{}
			byPeriod[k] = p
		}
		p.count++
		p.sum += float64(*e.TransitionDifficulty)
	}

	periods := make([]PeriodStats, 0, len(byPeriod))
	for k, p := range byPeriod {
		periods = append(periods, PeriodStats{
			Period:            k,
			AverageDifficulty: p.sum / float64(p.count),
			Count:             p.count,
		})
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Period < periods[j].Period })
	return periods
}

func difficulties(points []DifficultyPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = float64(p.Difficulty)
	}
	return out
}
