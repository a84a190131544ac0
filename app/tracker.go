package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/goals"
	"sensetrack/internal/logger"
	"sensetrack/ports"
)

// Tracker owns the caregiver's records in memory and writes each collection
// through to the key/value store after every mutation. A failed write leaves
// the in-memory state unchanged.
type Tracker struct {
	store ports.KeyValueStore
	loc   *time.Location
	clock core.Clock
	log   *logger.Logger

	mu       sync.RWMutex
	logs     []tracking.LogEntry
	crises   []tracking.CrisisEvent
	schedule []tracking.ScheduleEntry
	goals    []tracking.Goal
	profile  *tracking.ChildProfile
}

// NewTracker creates an empty tracker; call Load to read persisted state
func NewTracker(store ports.KeyValueStore, loc *time.Location, clock core.Clock, log *logger.Logger) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = core.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{store: store, loc: loc, clock: clock, log: log.With("component", "tracker")}
}

// Location is where logs are enriched
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Load replaces in-memory state with what the store holds. Missing keys load as empty.
func (t *Tracker) Load(ctx context.Context) error {
	var (
		logs     []tracking.LogEntry
		crises   []tracking.CrisisEvent
		schedule []tracking.ScheduleEntry
		goalList []tracking.Goal
		profile  tracking.ChildProfile
	)
	if err := t.read(ctx, core.KeyLogs, &logs); err != nil {
		return err
	}
	if err := t.read(ctx, core.KeyCrisisEvents, &crises); err != nil {
		return err
	}
	if err := t.read(ctx, core.KeyScheduleEntries, &schedule); err != nil {
		return err
	}
	if err := t.read(ctx, core.KeyGoals, &goalList); err != nil {
		return err
	}
	hasProfile := true
	if err := t.read(ctx, core.KeyChildProfile, &profile); err != nil {
		if !errors.Is(err, errMissing) {
			return err
		}
		hasProfile = false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs, t.crises, t.schedule, t.goals = logs, crises, schedule, goalList
	t.profile = nil
	if hasProfile {
		t.profile = &profile
	}
	t.log.Info("tracker loaded", "logs", len(logs), "crises", len(crises), "schedule", len(schedule), "goals", len(goalList))
	return nil
}

var errMissing = errors.New("key not stored")

// read decodes key into dst; a missing collection is left empty, a missing profile reports errMissing
func (t *Tracker) read(ctx context.Context, key core.StorageKey, dst interface{}) error {
	raw, err := t.store.Get(ctx, key)
	if err != nil {
		if core.IsNotFoundError(err) {
			if key == core.KeyChildProfile {
				return errMissing
			}
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (t *Tracker) write(ctx context.Context, key core.StorageKey, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := t.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// AddLog assigns an id when missing, enriches and validates the log, then stores it
func (t *Tracker) AddLog(ctx context.Context, l tracking.LogEntry) (tracking.LogEntry, error) {
	l = t.prepareLog(l)
	if err := l.Validate(); err != nil {
		return tracking.LogEntry{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if containsID(t.logs, l.ID, func(x tracking.LogEntry) core.ID { return x.ID }) {
		return tracking.LogEntry{}, core.NewDuplicateError("log", l.ID.String())
	}
	next := append(append([]tracking.LogEntry(nil), t.logs...), l)
	if err := t.write(ctx, core.KeyLogs, next); err != nil {
		return tracking.LogEntry{}, err
	}
	t.logs = next
	t.log.Debug("log added", "log_id", l.ID, "context", l.Context, "note", l.Note)
	return l, nil
}

func (t *Tracker) prepareLog(l tracking.LogEntry) tracking.LogEntry {
	if l.ID.IsEmpty() {
		l.ID = core.NewID()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = t.clock()
	}
	l.SensoryTriggers = tracking.UniqueTags(l.SensoryTriggers)
	l.ContextTriggers = tracking.UniqueTags(l.ContextTriggers)
	l.Strategies = tracking.UniqueTags(l.Strategies)
	return tracking.EnrichLog(l, t.loc)
}

// DeleteLog removes a log by id
func (t *Tracker) DeleteLog(ctx context.Context, id core.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, l := range t.logs {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.NewNotFoundError(core.ErrLogNotFound, id.String())
	}

	next := make([]tracking.LogEntry, 0, len(t.logs)-1)
	next = append(append(next, t.logs[:idx]...), t.logs[idx+1:]...)
	if err := t.write(ctx, core.KeyLogs, next); err != nil {
		return err
	}
	t.logs = next
	return nil
}

// Logs returns a copy of all logs in insertion order
func (t *Tracker) Logs() []tracking.LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]tracking.LogEntry{}, t.logs...)
}

// AddCrisis assigns an id when missing, enriches and validates the event, then stores it
func (t *Tracker) AddCrisis(ctx context.Context, c tracking.CrisisEvent) (tracking.CrisisEvent, error) {
	if c.ID.IsEmpty() {
		c.ID = core.NewID()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = t.clock()
	}
	c = tracking.EnrichCrisis(c, t.loc)
	if err := c.Validate(); err != nil {
		return tracking.CrisisEvent{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if containsID(t.crises, c.ID, func(x tracking.CrisisEvent) core.ID { return x.ID }) {
		return tracking.CrisisEvent{}, core.NewDuplicateError("crisis event", c.ID.String())
	}
	next := append(append([]tracking.CrisisEvent(nil), t.crises...), c)
	if err := t.write(ctx, core.KeyCrisisEvents, next); err != nil {
		return tracking.CrisisEvent{}, err
	}
	t.crises = next
	return c, nil
}

// DeleteCrisis removes a crisis event by id
func (t *Tracker) DeleteCrisis(ctx context.Context, id core.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make([]tracking.CrisisEvent, 0, len(t.crises))
	for _, c := range t.crises {
		if c.ID != id {
			next = append(next, c)
		}
	}
	if len(next) == len(t.crises) {
		return core.NewNotFoundError(core.ErrCrisisNotFound, id.String())
	}
	if err := t.write(ctx, core.KeyCrisisEvents, next); err != nil {
		return err
	}
	t.crises = next
	return nil
}

// Crises returns a copy of all crisis events in insertion order
func (t *Tracker) Crises() []tracking.CrisisEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]tracking.CrisisEvent{}, t.crises...)
}

// AddScheduleEntry validates and stores a schedule entry
func (t *Tracker) AddScheduleEntry(ctx context.Context, e tracking.ScheduleEntry) (tracking.ScheduleEntry, error) {
	if e.ID.IsEmpty() {
		e.ID = core.NewID()
	}
	if e.Activity.ID.IsEmpty() {
		e.Activity.ID = core.NewID()
	}
	e.TransitionSupport = tracking.UniqueTags(e.TransitionSupport)
	if err := e.Validate(); err != nil {
		return tracking.ScheduleEntry{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if containsID(t.schedule, e.ID, func(x tracking.ScheduleEntry) core.ID { return x.ID }) {
		return tracking.ScheduleEntry{}, core.NewDuplicateError("schedule entry", e.ID.String())
	}
	next := append(append([]tracking.ScheduleEntry(nil), t.schedule...), e)
	if err := t.write(ctx, core.KeyScheduleEntries, next); err != nil {
		return tracking.ScheduleEntry{}, err
	}
	t.schedule = next
	return e, nil
}

// UpdateScheduleEntry replaces the entry with the same id, typically to record
// completion status and transition difficulty
func (t *Tracker) UpdateScheduleEntry(ctx context.Context, e tracking.ScheduleEntry) (tracking.ScheduleEntry, error) {
	e.TransitionSupport = tracking.UniqueTags(e.TransitionSupport)
	if err := e.Validate(); err != nil {
		return tracking.ScheduleEntry{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := append([]tracking.ScheduleEntry(nil), t.schedule...)
	found := false
	for i := range next {
		if next[i].ID == e.ID {
			next[i] = e
			found = true
			break
		}
	}
	if !found {
		return tracking.ScheduleEntry{}, core.NewNotFoundError(core.ErrScheduleNotFound, e.ID.String())
	}
	if err := t.write(ctx, core.KeyScheduleEntries, next); err != nil {
		return tracking.ScheduleEntry{}, err
	}
	t.schedule = next
	return e, nil
}

// ScheduleEntries returns a copy of all schedule entries in insertion order
func (t *Tracker) ScheduleEntries() []tracking.ScheduleEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]tracking.ScheduleEntry{}, t.schedule...)
}

// AddGoal stores a new goal. Progress history always starts empty.
func (t *Tracker) AddGoal(ctx context.Context, g tracking.Goal) (tracking.Goal, error) {
	if g.ID.IsEmpty() {
		g.ID = core.NewID()
	}
	if g.StartDate.IsZero() {
		g.StartDate = core.StartOfDay(t.clock().In(t.loc))
	}
	g.Status = tracking.GoalNotStarted
	g.ProgressHistory = []tracking.GoalProgress{}
	if err := g.Validate(); err != nil {
		return tracking.Goal{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.goalIndex(g.ID) >= 0 {
		return tracking.Goal{}, core.NewDuplicateError("goal", g.ID.String())
	}
	next := append(append([]tracking.Goal(nil), t.goals...), g)
	if err := t.write(ctx, core.KeyGoals, next); err != nil {
		return tracking.Goal{}, err
	}
	t.goals = next
	return copyGoal(g), nil
}

// RecordGoalProgress appends a progress entry to a goal and recomputes its status
func (t *Tracker) RecordGoalProgress(ctx context.Context, id core.ID, p tracking.GoalProgress) (goals.Update, error) {
	return t.mutateGoal(ctx, id, func(g *tracking.Goal) (goals.Update, error) {
		return goals.RecordProgress(g, p, t.clock())
	})
}

// DiscontinueGoal closes a goal while keeping its history
func (t *Tracker) DiscontinueGoal(ctx context.Context, id core.ID) (goals.Update, error) {
	return t.mutateGoal(ctx, id, func(g *tracking.Goal) (goals.Update, error) {
		return goals.Discontinue(g), nil
	})
}

func (t *Tracker) mutateGoal(ctx context.Context, id core.ID, fn func(*tracking.Goal) (goals.Update, error)) (goals.Update, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.goalIndex(id)
	if idx < 0 {
		return goals.Update{}, core.NewNotFoundError(core.ErrGoalNotFound, id.String())
	}

	g := copyGoal(t.goals[idx])
	update, err := fn(&g)
	if err != nil {
		return goals.Update{}, err
	}

	next := append([]tracking.Goal(nil), t.goals...)
	next[idx] = g
	if err := t.write(ctx, core.KeyGoals, next); err != nil {
		return goals.Update{}, err
	}
	t.goals = next
	if update.StatusChanged() {
		t.log.Info("goal status changed", "goal_id", id, "from", update.PreviousStatus, "to", update.Status)
	}
	return update, nil
}

func containsID[T any](items []T, id core.ID, idOf func(T) core.ID) bool {
	for _, item := range items {
		if idOf(item) == id {
			return true
		}
	}
	return false
}

func (t *Tracker) goalIndex(id core.ID) int {
	for i, g := range t.goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// Goals returns copies of all goals
func (t *Tracker) Goals() []tracking.Goal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]tracking.Goal, len(t.goals))
	for i, g := range t.goals {
		out[i] = copyGoal(g)
	}
	return out
}

// Goal returns a copy of one goal
func (t *Tracker) Goal(id core.ID) (tracking.Goal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := t.goalIndex(id)
	if idx < 0 {
		return tracking.Goal{}, core.NewNotFoundError(core.ErrGoalNotFound, id.String())
	}
	return copyGoal(t.goals[idx]), nil
}

func copyGoal(g tracking.Goal) tracking.Goal {
	g.ProgressHistory = append([]tracking.GoalProgress{}, g.ProgressHistory...)
	return g
}

// SetProfile replaces the child profile
func (t *Tracker) SetProfile(ctx context.Context, p tracking.ChildProfile) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.write(ctx, core.KeyChildProfile, p); err != nil {
		return err
	}
	t.profile = &p
	return nil
}

// Profile returns the child profile, or core.ErrProfileNotFound before one is set
func (t *Tracker) Profile() (tracking.ChildProfile, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.profile == nil {
		return tracking.ChildProfile{}, core.ErrProfileNotFound
	}
	return *t.profile, nil
}

// ImportLogs adds logs in bulk. Every row is validated before anything is
// stored; logs whose id is already present are skipped. Returns the number added.
func (t *Tracker) ImportLogs(ctx context.Context, logs []tracking.LogEntry) (int, error) {
	prepared := make([]tracking.LogEntry, 0, len(logs))
	for i, l := range logs {
		l = t.prepareLog(l)
		if err := l.Validate(); err != nil {
			return 0, fmt.Errorf("log %d: %w", i+1, err)
		}
		prepared = append(prepared, l)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[core.ID]bool, len(t.logs))
	for _, l := range t.logs {
		seen[l.ID] = true
	}
	next := append([]tracking.LogEntry(nil), t.logs...)
	for _, l := range prepared {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		next = append(next, l)
	}

	added := len(next) - len(t.logs)
	if added == 0 {
		return 0, nil
	}
	if err := t.write(ctx, core.KeyLogs, next); err != nil {
		return 0, err
	}
	t.logs = next
	t.log.Info("logs imported", "added", added, "skipped", len(logs)-added)
	return added, nil
}

// ImportSchedule adds schedule entries in bulk with the same rules as ImportLogs
func (t *Tracker) ImportSchedule(ctx context.Context, entries []tracking.ScheduleEntry) (int, error) {
	prepared := make([]tracking.ScheduleEntry, 0, len(entries))
	for i, e := range entries {
		if e.ID.IsEmpty() {
			e.ID = core.NewID()
		}
		e.TransitionSupport = tracking.UniqueTags(e.TransitionSupport)
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("schedule entry %d: %w", i+1, err)
		}
		prepared = append(prepared, e)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[core.ID]bool, len(t.schedule))
	for _, e := range t.schedule {
		seen[e.ID] = true
	}
	next := append([]tracking.ScheduleEntry(nil), t.schedule...)
	for _, e := range prepared {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		next = append(next, e)
	}

	added := len(next) - len(t.schedule)
	if added == 0 {
		return 0, nil
	}
	if err := t.write(ctx, core.KeyScheduleEntries, next); err != nil {
		return 0, err
	}
	t.schedule = next
	t.log.Info("schedule imported", "added", added, "skipped", len(entries)-added)
	return added, nil
}

// Clear removes every stored collection. When a removal fails, the collections
// already removed from the store are also emptied in memory.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	collections := []struct {
		key   core.StorageKey
		reset func()
	}{
		{core.KeyLogs, func() { t.logs = nil }},
		{core.KeyCrisisEvents, func() { t.crises = nil }},
		{core.KeyScheduleEntries, func() { t.schedule = nil }},
		{core.KeyGoals, func() { t.goals = nil }},
		{core.KeyChildProfile, func() { t.profile = nil }},
	}
	for _, c := range collections {
		if err := t.store.Remove(ctx, c.key); err != nil {
			t.log.Error("tracker partially cleared", "failed_key", c.key, "error", err)
			return fmt.Errorf("failed to remove %s: %w", c.key, err)
		}
		c.reset()
	}
	t.log.Warn("tracker cleared")
	return nil
}
