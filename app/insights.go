package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/goals"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
	"sensetrack/internal/logger"
)

// GoalSummary is a goal's standing at a reference time
type GoalSummary struct {
	ID            core.ID                `json:"id"`
	Title         string                 `json:"title"`
	Category      tracking.GoalCategory  `json:"category"`
	Direction     tracking.GoalDirection `json:"direction"`
	Status        tracking.GoalStatus    `json:"status"`
	Percent       float64                `json:"percent"`
	CurrentValue  float64                `json:"current_value"`
	TargetValue   float64                `json:"target_value"`
	TargetUnit    string                 `json:"target_unit"`
	DaysRemaining int                    `json:"days_remaining"`
	Entries       int                    `json:"entries"`
}

// Snapshot bundles every analysis at one reference time
type Snapshot struct {
	GeneratedAt time.Time            `json:"generated_at"`
	LogCount    int                  `json:"log_count"`
	CrisisCount int                  `json:"crisis_count"`
	Transitions transitions.Stats    `json:"transitions"`
	Contexts    *contexts.Comparison `json:"contexts"`
	Risk        risk.Result          `json:"risk"`
	Goals       []GoalSummary        `json:"goals"`
}

// InsightsService runs the analyzers over the tracker's records
type InsightsService struct {
	tracker     *Tracker
	transitions *transitions.Analyzer
	contexts    *contexts.Comparator
	risk        *risk.Forecaster
	clock       core.Clock
	log         *logger.Logger
}

// NewInsightsService creates the service; nil analyzers fall back to their default configuration
func NewInsightsService(
	tracker *Tracker,
	ta *transitions.Analyzer,
	cc *contexts.Comparator,
	rf *risk.Forecaster,
	clock core.Clock,
	log *logger.Logger,
) *InsightsService {
	if ta == nil {
		ta, _ = transitions.NewAnalyzer(transitions.DefaultConfig())
	}
	if cc == nil {
		cc, _ = contexts.NewComparator(contexts.DefaultConfig())
	}
	if rf == nil {
		rf, _ = risk.NewForecaster(risk.DefaultConfig())
	}
	if clock == nil {
		clock = core.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &InsightsService{
		tracker:     tracker,
		transitions: ta,
		contexts:    cc,
		risk:        rf,
		clock:       clock,
		log:         log.With("component", "insights"),
	}
}

// Now is the service clock's current time
func (s *InsightsService) Now() time.Time {
	return s.clock()
}

// Transitions analyses every schedule entry
func (s *InsightsService) Transitions() transitions.Stats {
	return s.transitions.Calculate(s.tracker.ScheduleEntries())
}

// Contexts compares home and school; nil when either context has too few logs
func (s *InsightsService) Contexts() *contexts.Comparison {
	return s.contexts.Compare(s.tracker.Logs(), s.tracker.Crises())
}

// Risk forecasts the rest of now's day
func (s *InsightsService) Risk(now time.Time) risk.Result {
	return s.risk.Forecast(s.tracker.Logs(), now.In(s.tracker.Location()))
}

// Goals summarises every goal at now
func (s *InsightsService) Goals(now time.Time) []GoalSummary {
	list := s.tracker.Goals()
	out := make([]GoalSummary, 0, len(list))
	for _, g := range list {
		completion := goals.Completion(g)
		status := g.Status
		if len(g.ProgressHistory) > 0 {
			status = goals.DeriveStatus(g, completion, now)
		}
		out = append(out, GoalSummary{
			ID:            g.ID,
			Title:         g.Title,
			Category:      g.Category,
			Direction:     g.TargetDirection,
			Status:        status,
			Percent:       goals.RoundPercent(completion),
			CurrentValue:  g.CurrentValue,
			TargetValue:   g.TargetValue,
			TargetUnit:    g.TargetUnit,
			DaysRemaining: daysUntil(now, g.TargetDate),
			Entries:       len(g.ProgressHistory),
		})
	}
	return out
}

func daysUntil(now, target time.Time) int {
	if target.IsZero() {
		return 0
	}
	days := int(target.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Snapshot runs all analyses concurrently at now
func (s *InsightsService) Snapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	start := time.Now()
	snap := &Snapshot{
		GeneratedAt: now,
		LogCount:    len(s.tracker.Logs()),
		CrisisCount: len(s.tracker.Crises()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		snap.Transitions = s.Transitions()
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		snap.Contexts = s.Contexts()
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		snap.Risk = s.Risk(now)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		snap.Goals = s.Goals(now)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug("snapshot computed",
		"logs", snap.LogCount,
		"risk_level", snap.Risk.Level,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}
