package contexts

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/significance"
)

// Significance grades a difference between contexts
type Significance string

const (
	SignificanceLow    Significance = "low"
	SignificanceMedium Significance = "medium"
	SignificanceHigh   Significance = "high"
)

// DifferenceKind names what a difference is about
type DifferenceKind string

const (
	KindArousal         DifferenceKind = "arousal"
	KindEnergy          DifferenceKind = "energy"
	KindCrisisFrequency DifferenceKind = "crisis_frequency"
	KindTrigger         DifferenceKind = "trigger"
	KindStrategy        DifferenceKind = "strategy"
)

// TriggerFrequency is how often a trigger appears in a context's logs
type TriggerFrequency struct {
	Trigger    string  `json:"trigger"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StrategyOutcome is how often a strategy helped when used
type StrategyOutcome struct {
	Strategy     string  `json:"strategy"`
	UsageCount   int     `json:"usage_count"`
	SuccessCount int     `json:"success_count"`
	SuccessRate  float64 `json:"success_rate"` // percent
}

// HourlyArousal is the mean arousal logged during one hour of the day
type HourlyArousal struct {
	Hour           int     `json:"hour"`
	AverageArousal float64 `json:"average_arousal"`
	Count          int     `json:"count"`
}

// Metrics describes one context
type Metrics struct {
	Context        tracking.Context   `json:"context"`
	LogCount       int                `json:"log_count"`
	CrisisCount    int                `json:"crisis_count"`
	AverageArousal float64            `json:"average_arousal"`
	AverageEnergy  float64            `json:"average_energy"`
	AverageValence float64            `json:"average_valence"`
	TopTriggers    []TriggerFrequency `json:"top_triggers"`
	TopStrategies  []StrategyOutcome  `json:"top_strategies"`
	PeakHours      []HourlyArousal    `json:"peak_hours"`
	LoggingDays    int                `json:"logging_days"`
	CrisisPerDay   float64            `json:"crisis_per_day"`
}

// Difference is one reportable contrast between home and school
type Difference struct {
	Kind         DifferenceKind `json:"kind"`
	Subject      string         `json:"subject,omitempty"`
	HomeValue    float64        `json:"home_value"`
	SchoolValue  float64        `json:"school_value"`
	Delta        float64        `json:"delta"`
	PValue       *float64       `json:"p_value,omitempty"`
	Ratio        float64        `json:"ratio,omitempty"`
	Significance Significance   `json:"significance"`
	Description  string         `json:"description"`
}

// Comparison is the full home vs school report
type Comparison struct {
	Home        Metrics      `json:"home"`
	School      Metrics      `json:"school"`
	Differences []Difference `json:"differences"`
}

// Comparator compares logs and crises across contexts
type Comparator struct {
	cfg Config
}

// NewComparator validates cfg and returns a comparator
func NewComparator(cfg Config) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Comparator{cfg: cfg}, nil
}

// Config returns the comparator's configuration
func (c *Comparator) Config() Config {
	return c.cfg
}

// Compare runs the comparison with the default configuration
func Compare(logs []tracking.LogEntry, crises []tracking.CrisisEvent) *Comparison {
	return (&Comparator{cfg: DefaultConfig()}).Compare(logs, crises)
}

// contextData is the per-context working set
type contextData struct {
	logs     []tracking.LogEntry
	crises   []tracking.CrisisEvent
	arousal  []float64
	energy   []float64
	triggers map[string]int
}

// Compare returns nil when either context has fewer than MinLogsPerContext logs
func (c *Comparator) Compare(logs []tracking.LogEntry, crises []tracking.CrisisEvent) *Comparison {
	home := partition(tracking.ContextHome, logs, crises)
	school := partition(tracking.ContextSchool, logs, crises)

	if len(home.logs) < c.cfg.MinLogsPerContext || len(school.logs) < c.cfg.MinLogsPerContext {
		return nil
	}

	comparison := &Comparison{
		Home:   c.metrics(tracking.ContextHome, home),
		School: c.metrics(tracking.ContextSchool, school),
	}

	differences := make([]Difference, 0)
	if d, ok := c.meanDifference(KindArousal, home.arousal, school.arousal); ok {
		differences = append(differences, d)
	}
	if d, ok := c.meanDifference(KindEnergy, home.energy, school.energy); ok {
		differences = append(differences, d)
	}
	if d, ok := c.crisisDifference(comparison.Home, comparison.School); ok {
		differences = append(differences, d)
	}
	differences = append(differences, c.triggerDifferences(comparison.Home, comparison.School, home, school)...)
	differences = append(differences, c.strategyDifferences(comparison.Home, comparison.School)...)

	comparison.Differences = differences
	return comparison
}

func partition(ctx tracking.Context, logs []tracking.LogEntry, crises []tracking.CrisisEvent) *contextData {
	data := &contextData{triggers: make(map[string]int)}
	for _, l := range logs {
		if l.Context != ctx {
			continue
		}
		data.logs = append(data.logs, l)
		data.arousal = append(data.arousal, float64(l.Arousal))
		data.energy = append(data.energy, float64(l.Energy))
		for _, trigger := range l.Triggers() {
			data.triggers[trigger]++
		}
	}
	for _, ev := range crises {
		if ev.Context == ctx {
			data.crises = append(data.crises, ev)
		}
	}
	return data
}

func (c *Comparator) metrics(ctx tracking.Context, data *contextData) Metrics {
	valence := make([]float64, len(data.logs))
	days := make(map[string]bool)
	for i, l := range data.logs {
		valence[i] = float64(l.Valence)
		days[l.Timestamp.Format(core.DateLayout)] = true
	}

	m := Metrics{
		Context:        ctx,
		LogCount:       len(data.logs),
		CrisisCount:    len(data.crises),
		AverageArousal: roundedMean(data.arousal),
		AverageEnergy:  roundedMean(data.energy),
		AverageValence: roundedMean(valence),
		TopTriggers:    c.topTriggers(data),
		TopStrategies:  c.topStrategies(data.logs),
		PeakHours:      peakHours(data.logs),
		LoggingDays:    len(days),
	}
	if m.LoggingDays > 0 {
		m.CrisisPerDay = round(float64(m.CrisisCount)/float64(m.LoggingDays), 2)
	}
	return m
}

func (c *Comparator) topTriggers(data *contextData) []TriggerFrequency {
	triggers := make([]TriggerFrequency, 0, len(data.triggers))
	for name, count := range data.triggers {
		triggers = append(triggers, TriggerFrequency{
			Trigger:    name,
			Count:      count,
			Percentage: percentage(count, len(data.logs)),
		})
	}
	sort.Slice(triggers, func(i, j int) bool {
		if triggers[i].Count != triggers[j].Count {
			return triggers[i].Count > triggers[j].Count
		}
		return triggers[i].Trigger < triggers[j].Trigger
	})
	if len(triggers) > c.cfg.TopTriggersLimit {
		triggers = triggers[:c.cfg.TopTriggersLimit]
	}
	return triggers
}

func (c *Comparator) topStrategies(logs []tracking.LogEntry) []StrategyOutcome {
	byStrategy := make(map[string]*StrategyOutcome)
	for _, l := range logs {
		for _, s := range tracking.UniqueTags(l.Strategies) {
			outcome, ok := byStrategy[s]
			if !ok {
				outcome = &StrategyOutcome{Strategy: s}
				byStrategy[s] = outcome
			}
			outcome.UsageCount++
			if l.StrategyEffectiveness == tracking.EffectivenessHelped {
				outcome.SuccessCount++
			}
		}
	}

	strategies := make([]StrategyOutcome, 0, len(byStrategy))
	for _, outcome := range byStrategy {
		outcome.SuccessRate = percentage(outcome.SuccessCount, outcome.UsageCount)
		strategies = append(strategies, *outcome)
	}
	sort.Slice(strategies, func(i, j int) bool {
		if strategies[i].UsageCount != strategies[j].UsageCount {
			return strategies[i].UsageCount > strategies[j].UsageCount
		}
		if strategies[i].SuccessRate != strategies[j].SuccessRate {
			return strategies[i].SuccessRate > strategies[j].SuccessRate
		}
		return strategies[i].Strategy < strategies[j].Strategy
	})
	if len(strategies) > c.cfg.TopStrategiesLimit {
		strategies = strategies[:c.cfg.TopStrategiesLimit]
	}
	return strategies
}

// peakHours ranks hours of the day by mean arousal, highest first
func peakHours(logs []tracking.LogEntry) []HourlyArousal {
	byHour := make(map[int][]float64)
	for _, l := range logs {
		h := l.Hour()
		byHour[h] = append(byHour[h], float64(l.Arousal))
	}

	hours := make([]HourlyArousal, 0, len(byHour))
	for h, values := range byHour {
		hours = append(hours, HourlyArousal{Hour: h, AverageArousal: roundedMean(values), Count: len(values)})
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].AverageArousal != hours[j].AverageArousal {
			return hours[i].AverageArousal > hours[j].AverageArousal
		}
		return hours[i].Hour < hours[j].Hour
	})
	return hours
}

func (c *Comparator) meanDifference(kind DifferenceKind, home, school []float64) (Difference, bool) {
	test := significance.WelchTTest(home, school)
	if !test.Significant {
		return Difference{}, false
	}

	delta := test.Mean1 - test.Mean2
	absDelta := math.Abs(delta)
	level := SignificanceLow
	switch {
	case test.PValue < 0.01 && absDelta >= 1.5:
		level = SignificanceHigh
	case test.PValue < 0.05 && absDelta >= 1:
		level = SignificanceMedium
	}

	higher, lower := tracking.ContextHome, tracking.ContextSchool
	if delta < 0 {
		higher, lower = lower, higher
	}
	p := test.PValue
	return Difference{
		Kind:         kind,
		HomeValue:    round(test.Mean1, 1),
		SchoolValue:  round(test.Mean2, 1),
		Delta:        round(delta, 2),
		PValue:       &p,
		Significance: level,
		Description: fmt.Sprintf("Average %s is %.1f points higher at %s than at %s",
			kind, absDelta, higher, lower),
	}, true
}

// crisisDifference compares crisis rates by ratio; counts are too small for a t-test
func (c *Comparator) crisisDifference(home, school Metrics) (Difference, bool) {
	higher, lower := home, school
	if crossRate(school, home) > crossRate(home, school) {
		higher, lower = school, home
	}
	if higher.CrisisCount == 0 {
		return Difference{}, false
	}

	d := Difference{
		Kind:        KindCrisisFrequency,
		HomeValue:   home.CrisisPerDay,
		SchoolValue: school.CrisisPerDay,
		Delta:       round(home.CrisisPerDay-school.CrisisPerDay, 2),
	}

	if lower.CrisisCount == 0 {
		// unbounded ratio; a single crisis is not enough to call a pattern
		if higher.CrisisCount < 2 {
			return Difference{}, false
		}
		d.Significance = SignificanceHigh
		d.Description = fmt.Sprintf("Crises were logged only at %s (%d episodes)", higher.Context, higher.CrisisCount)
		return d, true
	}

	ratio := crossRate(higher, lower) / crossRate(lower, higher)
	switch {
	case ratio >= 3:
		d.Significance = SignificanceHigh
	case ratio >= 2:
		d.Significance = SignificanceMedium
	default:
		return Difference{}, false
	}
	d.Ratio = round(ratio, 2)
	d.Description = fmt.Sprintf("Crises are %.1fx more frequent at %s than at %s", ratio, higher.Context, lower.Context)
	return d, true
}

// crossRate scales m's crisis count by other's logging days so rates compare without division
func crossRate(m, other Metrics) float64 {
	return float64(m.CrisisCount * other.LoggingDays)
}

func (c *Comparator) triggerDifferences(home, school Metrics, homeData, schoolData *contextData) []Difference {
	var diffs []Difference
	diffs = append(diffs, c.exclusiveTriggers(home, school, homeData, schoolData)...)
	diffs = append(diffs, c.exclusiveTriggers(school, home, schoolData, homeData)...)
	return diffs
}

// exclusiveTriggers reports prominent triggers of one context missing from the other's top list
func (c *Comparator) exclusiveTriggers(in, other Metrics, inData, otherData *contextData) []Difference {
	otherTop := make(map[string]bool, len(other.TopTriggers))
	for _, t := range other.TopTriggers {
		otherTop[t.Trigger] = true
	}

	var diffs []Difference
	for _, t := range in.TopTriggers {
		if t.Percentage < c.cfg.SignificantDifferenceThreshold || otherTop[t.Trigger] {
			continue
		}
		otherPct := percentage(otherData.triggers[t.Trigger], len(otherData.logs))
		d := Difference{
			Kind:         KindTrigger,
			Subject:      t.Trigger,
			Significance: SignificanceMedium,
			Description: fmt.Sprintf("%q appears in %.0f%% of %s logs but is not a top trigger at %s",
				t.Trigger, t.Percentage, in.Context, other.Context),
		}
		if in.Context == tracking.ContextHome {
			d.HomeValue, d.SchoolValue = t.Percentage, otherPct
		} else {
			d.HomeValue, d.SchoolValue = otherPct, t.Percentage
		}
		d.Delta = round(d.HomeValue-d.SchoolValue, 1)
		diffs = append(diffs, d)
	}
	return diffs
}

func (c *Comparator) strategyDifferences(home, school Metrics) []Difference {
	schoolByName := make(map[string]StrategyOutcome, len(school.TopStrategies))
	for _, s := range school.TopStrategies {
		schoolByName[s.Strategy] = s
	}

	var diffs []Difference
	for _, h := range home.TopStrategies {
		s, shared := schoolByName[h.Strategy]
		if !shared {
			continue
		}
		delta := h.SuccessRate - s.SuccessRate
		if math.Abs(delta) <= c.cfg.SignificantDifferenceThreshold {
			continue
		}
		level := SignificanceMedium
		if math.Abs(delta) >= c.cfg.StrongDifferenceThreshold {
			level = SignificanceHigh
		}
		better, worse := tracking.ContextHome, tracking.ContextSchool
		if delta < 0 {
			better, worse = worse, better
		}
		diffs = append(diffs, Difference{
			Kind:         KindStrategy,
			Subject:      h.Strategy,
			HomeValue:    h.SuccessRate,
			SchoolValue:  s.SuccessRate,
			Delta:        round(delta, 1),
			Significance: level,
			Description: fmt.Sprintf("%q helps more often at %s (%.0f%% vs %.0f%% at %s)",
				h.Strategy, better, math.Max(h.SuccessRate, s.SuccessRate), math.Min(h.SuccessRate, s.SuccessRate), worse),
		})
	}
	return diffs
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round(float64(part)/float64(whole)*100, 1)
}

func roundedMean(values []float64) float64 {
	mean, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return round(mean, 1)
}

func round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil {
		return v
	}
	return r
}
