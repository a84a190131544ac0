package testkit

import (
	"context"
	"fmt"

	"sensetrack/app"
	"sensetrack/domain/core"
)

// SeedResult counts the records a seed run stored
type SeedResult struct {
	Logs     int `json:"logs"`
	Crises   int `json:"crises"`
	Schedule int `json:"schedule"`
	Goals    int `json:"goals"`
}

// Seed stores a generated dataset through the tracker, so records are enriched
// and validated exactly as user input would be. Records whose id is already
// stored are skipped.
func Seed(ctx context.Context, tracker *app.Tracker, ds *Dataset) (SeedResult, error) {
	var result SeedResult
	var err error

	if err = tracker.SetProfile(ctx, ds.Profile); err != nil {
		return result, fmt.Errorf("failed to seed profile: %w", err)
	}
	if result.Logs, err = tracker.ImportLogs(ctx, ds.Logs); err != nil {
		return result, fmt.Errorf("failed to seed logs: %w", err)
	}
	if result.Schedule, err = tracker.ImportSchedule(ctx, ds.Schedule); err != nil {
		return result, fmt.Errorf("failed to seed schedule: %w", err)
	}
	existing := make(map[core.ID]bool)
	for _, c := range tracker.Crises() {
		existing[c.ID] = true
	}
	for _, c := range ds.Crises {
		if existing[c.ID] {
			continue
		}
		if _, err := tracker.AddCrisis(ctx, c); err != nil {
			return result, fmt.Errorf("failed to seed crisis %s: %w", c.ID, err)
		}
		result.Crises++
	}
	for _, g := range ds.Goals {
		if _, err := tracker.Goal(g.ID); err == nil {
			continue
		}
		if _, err := tracker.AddGoal(ctx, g); err != nil {
			return result, fmt.Errorf("failed to seed goal %s: %w", g.ID, err)
		}
		result.Goals++
	}
	return result, nil
}
