package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/adapters/memory"
	"sensetrack/app"
	"sensetrack/domain/core"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	config := DefaultCaregiverConfig()
	ds := generate(t, config)

	clock := core.FixedClock(config.End)
	tracker := app.NewTracker(memory.NewStore(), time.UTC, clock, nil)

	result, err := Seed(ctx, tracker, ds)
	require.NoError(t, err)
	assert.Equal(t, len(ds.Logs), result.Logs)
	assert.Equal(t, len(ds.Crises), result.Crises)
	assert.Equal(t, len(ds.Schedule), result.Schedule)
	assert.Equal(t, 2, result.Goals)

	profile, err := tracker.Profile()
	require.NoError(t, err)
	assert.Equal(t, "Alex", profile.Name)

	// logs come back enriched
	logs := tracker.Logs()
	require.NotEmpty(t, logs)
	assert.NotEmpty(t, logs[0].DayOfWeek)
	assert.NotEmpty(t, logs[0].TimeOfDay)

	snap, err := app.NewInsightsService(tracker, nil, nil, nil, clock, nil).Snapshot(ctx, config.End)
	require.NoError(t, err)
	assert.Equal(t, len(ds.Logs), snap.LogCount)
	assert.NotNil(t, snap.Contexts)
	assert.Len(t, snap.Goals, 2)
}

func TestSeed_SkipsExistingRecords(t *testing.T) {
	ctx := context.Background()
	ds := generate(t, DefaultCaregiverConfig())
	tracker := app.NewTracker(memory.NewStore(), time.UTC, nil, nil)

	_, err := Seed(ctx, tracker, ds)
	require.NoError(t, err)

	result, err := Seed(ctx, tracker, ds)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, result)
	assert.Len(t, tracker.Logs(), len(ds.Logs))
	assert.Len(t, tracker.Crises(), len(ds.Crises))
	assert.Len(t, tracker.Goals(), len(ds.Goals))
}
