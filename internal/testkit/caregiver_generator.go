// Package testkit generates seeded synthetic caregiver data with known patterns
// for tests, demos and the seed command.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
)

// CaregiverGeneratorConfig configures the caregiver data generator
type CaregiverGeneratorConfig struct {
	Days       int       `json:"days"`
	LogsPerDay int       `json:"logs_per_day"`
	End        time.Time `json:"end"`
	Seed       int64     `json:"seed"`

	// SchoolArousalBoost raises school-day arousal above home
	SchoolArousalBoost float64 `json:"school_arousal_boost"`
	// PeakWeekday and PeakHour place a recurring high-arousal episode
	PeakWeekday time.Weekday `json:"peak_weekday"`
	PeakHour    int          `json:"peak_hour"`
	// CrisisRate is the chance per day of a crisis event
	CrisisRate float64 `json:"crisis_rate"`
	// ImprovingActivity gets easier to transition into over the period
	ImprovingActivity string `json:"improving_activity"`
}

// DefaultCaregiverConfig returns sensible defaults for caregiver data generation
func DefaultCaregiverConfig() CaregiverGeneratorConfig {
	return CaregiverGeneratorConfig{
		Days:               42,
		LogsPerDay:         3,
		End:                time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC),
		Seed:               42,
		SchoolArousalBoost: 2.0,
		PeakWeekday:        time.Tuesday,
		PeakHour:           15,
		CrisisRate:         0.15,
		ImprovingActivity:  "Leave playground",
	}
}

// Dataset is everything a generator run produces
type Dataset struct {
	Profile  tracking.ChildProfile    `json:"profile"`
	Logs     []tracking.LogEntry      `json:"logs"`
	Crises   []tracking.CrisisEvent   `json:"crises"`
	Schedule []tracking.ScheduleEntry `json:"schedule"`
	Goals    []tracking.Goal          `json:"goals"`
}

var (
	sensoryTriggers = []string{"noise", "bright light", "crowds", "scratchy clothes", "strong smells"}
	contextTriggers = []string{"transition", "unexpected change", "waiting", "demand", "hunger"}
	strategies      = []string{"headphones", "deep pressure", "quiet corner", "visual timer", "movement break"}
	activities      = []string{"Breakfast", "Bus ride", "Recess", "Lunch", "Homework", "Bath"}
	supports        = []string{"visual timer", "first-then board", "five minute warning"}
)

// CaregiverDataGenerator generates realistic caregiver records
type CaregiverDataGenerator struct {
	config CaregiverGeneratorConfig
	rng    *rand.Rand
	seq    int
}

// NewCaregiverDataGenerator creates a new caregiver data generator
func NewCaregiverDataGenerator(config CaregiverGeneratorConfig) *CaregiverDataGenerator {
	return &CaregiverDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate produces a full dataset. The same config always yields the same data.
func (g *CaregiverDataGenerator) Generate() (*Dataset, error) {
	if g.config.Days < 1 || g.config.LogsPerDay < 1 {
		return nil, fmt.Errorf("days and logs_per_day must be positive")
	}
	if g.config.PeakHour < 0 || g.config.PeakHour > 23 {
		return nil, fmt.Errorf("peak_hour must be in [0,23]")
	}

	ds := &Dataset{
		Profile: tracking.ChildProfile{
			Name:                 "Alex",
			Age:                  8,
			Diagnoses:            []string{"autism"},
			CommunicationStyle:   "verbal, short phrases",
			SensorySensitivities: []string{"noise", "bright light"},
			SeekingSensory:       []string{"deep pressure", "spinning"},
			EffectiveStrategies:  []string{"headphones", "visual timer"},
		},
	}

	end := g.config.End
	start := core.StartOfDay(end).AddDate(0, 0, -g.config.Days)
	for d := 0; d < g.config.Days; d++ {
		day := start.AddDate(0, 0, d)
		progress := float64(d) / float64(g.config.Days)
		ds.Logs = append(ds.Logs, g.dayLogs(day)...)
		ds.Schedule = append(ds.Schedule, g.daySchedule(day, progress)...)
		if g.rng.Float64() < g.config.CrisisRate {
			ds.Crises = append(ds.Crises, g.crisis(day))
		}
	}
	ds.Goals = g.goals(start, end)
	return ds, nil
}

// nextID is unique within a run and across seeds
func (g *CaregiverDataGenerator) nextID(prefix string) core.ID {
	g.seq++
	return core.ID(fmt.Sprintf("%s_%d_%05d", prefix, g.config.Seed, g.seq))
}

func isSchoolDay(day time.Time) bool {
	return day.Weekday() != time.Saturday && day.Weekday() != time.Sunday
}

func (g *CaregiverDataGenerator) dayLogs(day time.Time) []tracking.LogEntry {
	logs := make([]tracking.LogEntry, 0, g.config.LogsPerDay+1)
	for i := 0; i < g.config.LogsPerDay; i++ {
		hour := 7 + g.rng.Intn(13)
		ctx := tracking.ContextHome
		base := 4.0
		if isSchoolDay(day) && hour >= 9 && hour < 15 {
			ctx = tracking.ContextSchool
			base += g.config.SchoolArousalBoost
		}
		logs = append(logs, g.log(day, hour, ctx, base))
	}

	// recurring peak on the configured weekday
	if day.Weekday() == g.config.PeakWeekday {
		ctx := tracking.ContextHome
		if isSchoolDay(day) && g.config.PeakHour >= 9 && g.config.PeakHour < 15 {
			ctx = tracking.ContextSchool
		}
		logs = append(logs, g.log(day, g.config.PeakHour, ctx, 8.5))
	}
	return logs
}

func (g *CaregiverDataGenerator) log(day time.Time, hour int, ctx tracking.Context, arousal float64) tracking.LogEntry {
	ts := day.Add(time.Duration(hour)*time.Hour + time.Duration(g.rng.Intn(60))*time.Minute)
	a := g.rating(arousal, 1.0)

	entry := tracking.LogEntry{
		ID:              g.nextID("log"),
		Timestamp:       ts,
		Context:         ctx,
		Arousal:         a,
		Valence:         g.rating(10-float64(a)*0.6, 1.0),
		Energy:          g.rating(5, 1.5),
		DurationMinutes: 5 + g.rng.Intn(40),
	}
	if a >= 6 {
		entry.SensoryTriggers = []string{g.pick(sensoryTriggers)}
		entry.ContextTriggers = []string{g.pick(contextTriggers)}
		entry.Strategies = []string{g.pick(strategies)}
		entry.StrategyEffectiveness = g.effectiveness(entry.Strategies[0])
	}
	return entry
}

func (g *CaregiverDataGenerator) effectiveness(strategy string) tracking.Effectiveness {
	helpRate := 0.4
	if strategy == "headphones" || strategy == "visual timer" {
		helpRate = 0.8
	}
	switch r := g.rng.Float64(); {
	case r < helpRate:
		return tracking.EffectivenessHelped
	case r < helpRate+0.15:
		return tracking.EffectivenessEscalated
	}
	return tracking.EffectivenessNoChange
}

func (g *CaregiverDataGenerator) daySchedule(day time.Time, progress float64) []tracking.ScheduleEntry {
	entries := make([]tracking.ScheduleEntry, 0, len(activities)+1)
	for i, title := range activities {
		ctx := tracking.ContextHome
		if isSchoolDay(day) && (title == "Recess" || title == "Lunch") {
			ctx = tracking.ContextSchool
		}
		entries = append(entries, g.scheduleEntry(day, title, ctx, 7+2*i, 3.5, nil))
	}

	if g.config.ImprovingActivity != "" {
		// difficulty falls from about 8 to about 3 across the period
		mean := 8 - 5*progress
		var support []string
		if g.rng.Float64() < 0.6 {
			support = []string{g.pick(supports)}
			mean -= 0.5
		}
		entries = append(entries, g.scheduleEntry(day, g.config.ImprovingActivity, tracking.ContextHome, 16, mean, support))
	}
	return entries
}

func (g *CaregiverDataGenerator) scheduleEntry(day time.Time, title string, ctx tracking.Context, hour int, difficulty float64, support []string) tracking.ScheduleEntry {
	entry := tracking.ScheduleEntry{
		ID:      g.nextID("sched"),
		Date:    day,
		Context: ctx,
		Activity: tracking.ScheduleActivity{
			ID:              core.ID("activity_" + title),
			Title:           title,
			ScheduledStart:  fmt.Sprintf("%02d:00", hour),
			ScheduledEnd:    fmt.Sprintf("%02d:30", hour),
			DurationMinutes: 30,
		},
		Status:            tracking.StatusCompleted,
		TransitionSupport: support,
	}
	if g.rng.Float64() < 0.1 {
		entry.Status = tracking.StatusSkipped
		return entry
	}
	d := g.rating(difficulty, 1.0)
	entry.TransitionDifficulty = &d
	return entry
}

func (g *CaregiverDataGenerator) crisis(day time.Time) tracking.CrisisEvent {
	hour := 8 + g.rng.Intn(12)
	ctx := tracking.ContextHome
	if isSchoolDay(day) && hour >= 9 && hour < 15 {
		ctx = tracking.ContextSchool
	}
	preceding := g.rating(7, 1)
	recovery := 10 + g.rng.Intn(50)
	types := []tracking.CrisisType{tracking.CrisisMeltdown, tracking.CrisisShutdown, tracking.CrisisSensoryOverload, tracking.CrisisAnxiety}
	resolutions := []tracking.Resolution{tracking.ResolutionCoRegulated, tracking.ResolutionSelfRegulated, tracking.ResolutionTimedOut}

	return tracking.CrisisEvent{
		ID:                  g.nextID("crisis"),
		Timestamp:           day.Add(time.Duration(hour)*time.Hour + time.Duration(g.rng.Intn(60))*time.Minute),
		Context:             ctx,
		Type:                types[g.rng.Intn(len(types))],
		DurationSeconds:     60 * (3 + g.rng.Intn(25)),
		PeakIntensity:       g.rating(8, 1),
		PrecedingArousal:    &preceding,
		WarningSigns:        []string{"covering ears", "pacing"},
		Triggers:            []string{g.pick(sensoryTriggers)},
		StrategiesUsed:      []string{g.pick(strategies)},
		Resolution:          resolutions[g.rng.Intn(len(resolutions))],
		RecoveryTimeMinutes: &recovery,
	}
}

func (g *CaregiverDataGenerator) goals(start, end time.Time) []tracking.Goal {
	return []tracking.Goal{
		{
			ID:              g.nextID("goal"),
			Title:           "Fewer meltdowns per week",
			Category:        tracking.CategoryRegulation,
			TargetValue:     1,
			TargetUnit:      "meltdowns/week",
			TargetDirection: tracking.DirectionDecrease,
			StartDate:       start,
			TargetDate:      end.AddDate(0, 2, 0),
			Status:          tracking.GoalNotStarted,
			ProgressHistory: []tracking.GoalProgress{},
		},
		{
			ID:              g.nextID("goal"),
			Title:           "Ask for a break with words",
			Category:        tracking.CategoryCommunication,
			TargetValue:     10,
			TargetUnit:      "times/week",
			TargetDirection: tracking.DirectionIncrease,
			StartDate:       start,
			TargetDate:      end.AddDate(0, 1, 0),
			Status:          tracking.GoalNotStarted,
			ProgressHistory: []tracking.GoalProgress{},
		},
	}
}

// rating draws a 1..10 value around mean
func (g *CaregiverDataGenerator) rating(mean, sd float64) int {
	v := int(math.Round(mean + g.rng.NormFloat64()*sd))
	if v < tracking.MinRating {
		return tracking.MinRating
	}
	if v > tracking.MaxRating {
		return tracking.MaxRating
	}
	return v
}

func (g *CaregiverDataGenerator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}
