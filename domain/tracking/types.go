package tracking

import (
	"time"

	"sensetrack/domain/core"
)

// Context is the environment an observation was made in
type Context string

const (
	ContextHome   Context = "home"
	ContextSchool Context = "school"
)

// Valid reports whether c is a known context
func (c Context) Valid() bool {
	return c == ContextHome || c == ContextSchool
}

// Effectiveness is the observed outcome of the strategies used during a log
type Effectiveness string

const (
	EffectivenessHelped    Effectiveness = "helped"
	EffectivenessNoChange  Effectiveness = "no_change"
	EffectivenessEscalated Effectiveness = "escalated"
)

func (e Effectiveness) Valid() bool {
	switch e {
	case "", EffectivenessHelped, EffectivenessNoChange, EffectivenessEscalated:
		return true
	}
	return false
}

// TimeOfDay buckets an hour into a coarse period
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "morning"
	TimeAfternoon TimeOfDay = "afternoon"
	TimeEvening   TimeOfDay = "evening"
	TimeNight     TimeOfDay = "night"
)

// CrisisType classifies a crisis episode
type CrisisType string

const (
	CrisisMeltdown        CrisisType = "meltdown"
	CrisisShutdown        CrisisType = "shutdown"
	CrisisAnxiety         CrisisType = "anxiety"
	CrisisSensoryOverload CrisisType = "sensory_overload"
	CrisisOther           CrisisType = "other"
)

func (c CrisisType) Valid() bool {
	switch c {
	case CrisisMeltdown, CrisisShutdown, CrisisAnxiety, CrisisSensoryOverload, CrisisOther:
		return true
	}
	return false
}

// Resolution describes how a crisis ended
type Resolution string

const (
	ResolutionSelfRegulated Resolution = "self_regulated"
	ResolutionCoRegulated   Resolution = "co_regulated"
	ResolutionTimedOut      Resolution = "timed_out"
	ResolutionInterrupted   Resolution = "interrupted"
	ResolutionOther         Resolution = "other"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionSelfRegulated, ResolutionCoRegulated, ResolutionTimedOut, ResolutionInterrupted, ResolutionOther:
		return true
	}
	return false
}

// ScheduleStatus is the execution state of a scheduled activity
type ScheduleStatus string

const (
	StatusCompleted ScheduleStatus = "completed"
	StatusCurrent   ScheduleStatus = "current"
	StatusUpcoming  ScheduleStatus = "upcoming"
	StatusSkipped   ScheduleStatus = "skipped"
	StatusModified  ScheduleStatus = "modified"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusCurrent, StatusUpcoming, StatusSkipped, StatusModified:
		return true
	}
	return false
}

// GoalDirection says which way a goal's value should move
type GoalDirection string

const (
	DirectionIncrease GoalDirection = "increase"
	DirectionDecrease GoalDirection = "decrease"
	DirectionMaintain GoalDirection = "maintain"
)

func (d GoalDirection) Valid() bool {
	return d == DirectionIncrease || d == DirectionDecrease || d == DirectionMaintain
}

// GoalStatus is the lifecycle state of a goal
type GoalStatus string

const (
	GoalNotStarted   GoalStatus = "not_started"
	GoalInProgress   GoalStatus = "in_progress"
	GoalOnTrack      GoalStatus = "on_track"
	GoalAtRisk       GoalStatus = "at_risk"
	GoalAchieved     GoalStatus = "achieved"
	GoalDiscontinued GoalStatus = "discontinued"
)

// GoalCategory groups goals for display
type GoalCategory string

const (
	CategoryRegulation    GoalCategory = "regulation"
	CategorySocial        GoalCategory = "social"
	CategoryAcademic      GoalCategory = "academic"
	CategoryCommunication GoalCategory = "communication"
	CategoryDailyLiving   GoalCategory = "daily_living"
	CategoryMotorSkills   GoalCategory = "motor_skills"
)

// LogEntry is a point-in-time observation of the child's state
type LogEntry struct {
	ID                    core.ID       `json:"id"`
	Timestamp             time.Time     `json:"timestamp"`
	Context               Context       `json:"context"`
	Arousal               int           `json:"arousal"`
	Valence               int           `json:"valence"`
	Energy                int           `json:"energy"`
	SensoryTriggers       []string      `json:"sensory_triggers"`
	ContextTriggers       []string      `json:"context_triggers"`
	Strategies            []string      `json:"strategies"`
	StrategyEffectiveness Effectiveness `json:"strategy_effectiveness,omitempty"`
	DurationMinutes       int           `json:"duration_minutes"`
	Note                  string        `json:"note,omitempty"`

	// Derived by EnrichLog
	DayOfWeek string    `json:"day_of_week,omitempty"`
	TimeOfDay TimeOfDay `json:"time_of_day,omitempty"`
	HourOfDay int       `json:"hour_of_day"`
}

// Triggers returns the sensory and context triggers of the log, deduplicated, in first-seen order
func (l LogEntry) Triggers() []string {
	return dedupe(append(append([]string{}, l.SensoryTriggers...), l.ContextTriggers...))
}

// CrisisEvent is a higher-severity episode
type CrisisEvent struct {
	ID                  core.ID    `json:"id"`
	Timestamp           time.Time  `json:"timestamp"`
	Context             Context    `json:"context"`
	Type                CrisisType `json:"type"`
	DurationSeconds     int        `json:"duration_seconds"`
	PeakIntensity       int        `json:"peak_intensity"`
	PrecedingArousal    *int       `json:"preceding_arousal,omitempty"`
	PrecedingEnergy     *int       `json:"preceding_energy,omitempty"`
	WarningSigns        []string   `json:"warning_signs"`
	Triggers            []string   `json:"triggers"`
	StrategiesUsed      []string   `json:"strategies_used"`
	Resolution          Resolution `json:"resolution"`
	RecoveryTimeMinutes *int       `json:"recovery_time_minutes,omitempty"`
	Note                string     `json:"note,omitempty"`

	DayOfWeek string    `json:"day_of_week,omitempty"`
	TimeOfDay TimeOfDay `json:"time_of_day,omitempty"`
	HourOfDay int       `json:"hour_of_day"`
}

// ScheduleActivity is the planned activity embedded in a schedule entry
type ScheduleActivity struct {
	ID              core.ID `json:"id"`
	Title           string  `json:"title"`
	Icon            string  `json:"icon,omitempty"`
	ScheduledStart  string  `json:"scheduled_start"`
	ScheduledEnd    string  `json:"scheduled_end"`
	DurationMinutes int     `json:"duration_minutes"`
}

// ScheduleEntry is one occurrence of a scheduled activity
type ScheduleEntry struct {
	ID                   core.ID          `json:"id"`
	Date                 time.Time        `json:"date"`
	Context              Context          `json:"context"`
	Activity             ScheduleActivity `json:"activity"`
	Status               ScheduleStatus   `json:"status"`
	ActualStart          string           `json:"actual_start,omitempty"`
	ActualEnd            string           `json:"actual_end,omitempty"`
	TransitionDifficulty *int             `json:"transition_difficulty,omitempty"`
	TransitionSupport    []string         `json:"transition_support,omitempty"`
	Note                 string           `json:"note,omitempty"`
}

// GoalProgress is one measurement toward a goal
type GoalProgress struct {
	ID      core.ID   `json:"id"`
	GoalID  core.ID   `json:"goal_id"`
	Value   float64   `json:"value"`
	Date    time.Time `json:"date"`
	Context Context   `json:"context,omitempty"`
	Note    string    `json:"note,omitempty"`
}

// Goal is a long-running target tracked through progress entries
type Goal struct {
	ID              core.ID        `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Category        GoalCategory   `json:"category"`
	TargetValue     float64        `json:"target_value"`
	TargetUnit      string         `json:"target_unit"`
	TargetDirection GoalDirection  `json:"target_direction"`
	StartDate       time.Time      `json:"start_date"`
	TargetDate      time.Time      `json:"target_date"`
	CurrentValue    float64        `json:"current_value"`
	Status          GoalStatus     `json:"status"`
	ProgressHistory []GoalProgress `json:"progress_history"`
	Notes           string         `json:"notes,omitempty"`
}

// ChildProfile is read-only context for analyses and prompts
type ChildProfile struct {
	Name                 string   `json:"name"`
	Age                  int      `json:"age,omitempty"`
	Diagnoses            []string `json:"diagnoses"`
	CommunicationStyle   string   `json:"communication_style,omitempty"`
	SensorySensitivities []string `json:"sensory_sensitivities"`
	SeekingSensory       []string `json:"seeking_sensory"`
	EffectiveStrategies  []string `json:"effective_strategies"`
	AdditionalContext    string   `json:"additional_context,omitempty"`
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// UniqueTags returns tags deduplicated in first-seen order, dropping empties
func UniqueTags(tags []string) []string {
	return dedupe(tags)
}
