package testkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/tracking"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/transitions"
)

func generate(t *testing.T, config CaregiverGeneratorConfig) *Dataset {
	t.Helper()
	ds, err := NewCaregiverDataGenerator(config).Generate()
	require.NoError(t, err)
	return ds
}

func TestCaregiverGenerator_Deterministic(t *testing.T) {
	config := DefaultCaregiverConfig()
	a := generate(t, config)
	b := generate(t, config)
	assert.Equal(t, a, b)

	config.Seed = 7
	c := generate(t, config)
	assert.NotEqual(t, a.Logs, c.Logs)
}

func TestCaregiverGenerator_RecordsAreValid(t *testing.T) {
	ds := generate(t, DefaultCaregiverConfig())

	require.NotEmpty(t, ds.Logs)
	require.NotEmpty(t, ds.Schedule)
	require.Len(t, ds.Goals, 2)

	seen := make(map[string]bool)
	for _, l := range ds.Logs {
		require.NoError(t, l.Validate(), l.ID)
		assert.False(t, seen[l.ID.String()], "duplicate id %s", l.ID)
		seen[l.ID.String()] = true
	}
	for _, c := range ds.Crises {
		require.NoError(t, c.Validate(), c.ID)
	}
	for _, s := range ds.Schedule {
		require.NoError(t, s.Validate(), s.ID)
	}
	for _, g := range ds.Goals {
		require.NoError(t, g.Validate(), g.ID)
	}
}

func TestCaregiverGenerator_Window(t *testing.T) {
	config := DefaultCaregiverConfig()
	config.Days = 14
	ds := generate(t, config)

	start := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	for _, l := range ds.Logs {
		assert.False(t, l.Timestamp.Before(start), l.Timestamp)
		assert.True(t, l.Timestamp.Before(config.End), l.Timestamp)
	}
	// 14 days of 3 logs plus two peak-day logs
	assert.Len(t, ds.Logs, 14*3+2)
}

func TestCaregiverGenerator_SchoolIsHarder(t *testing.T) {
	ds := generate(t, DefaultCaregiverConfig())

	comparison := contexts.Compare(ds.Logs, ds.Crises)
	require.NotNil(t, comparison)
	assert.Greater(t, comparison.School.AverageArousal, comparison.Home.AverageArousal)

	var found bool
	for _, d := range comparison.Differences {
		if d.Kind == contexts.KindArousal {
			found = true
			assert.NotEqual(t, contexts.SignificanceLow, d.Significance)
		}
	}
	assert.True(t, found, "expected an arousal difference")
}

func TestCaregiverGenerator_ImprovingActivity(t *testing.T) {
	config := DefaultCaregiverConfig()
	ds := generate(t, config)

	stats := transitions.Calculate(ds.Schedule)
	require.NotEmpty(t, stats.Activities)

	var target *transitions.ActivityStats
	for i := range stats.Activities {
		if stats.Activities[i].Activity == config.ImprovingActivity {
			target = &stats.Activities[i]
		}
	}
	require.NotNil(t, target)
	assert.Equal(t, transitions.TrendImproving, target.Trend)
	assert.Less(t, target.SecondHalfAverage, target.FirstHalfAverage)
}

func TestCaregiverGenerator_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CaregiverGeneratorConfig)
	}{
		{"no days", func(c *CaregiverGeneratorConfig) { c.Days = 0 }},
		{"no logs", func(c *CaregiverGeneratorConfig) { c.LogsPerDay = 0 }},
		{"bad peak hour", func(c *CaregiverGeneratorConfig) { c.PeakHour = 24 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultCaregiverConfig()
			tt.mutate(&config)
			_, err := NewCaregiverDataGenerator(config).Generate()
			assert.Error(t, err)
		})
	}
}

func TestCaregiverGenerator_PeakDay(t *testing.T) {
	ds := generate(t, DefaultCaregiverConfig())

	var peak, other []int
	for _, l := range ds.Logs {
		if l.Timestamp.Weekday() == time.Tuesday && l.Timestamp.Hour() == 15 {
			peak = append(peak, l.Arousal)
		} else {
			other = append(other, l.Arousal)
		}
	}
	require.NotEmpty(t, peak)
	assert.Greater(t, mean(peak), mean(other))

	for _, l := range ds.Logs {
		if l.Timestamp.Weekday() == time.Saturday {
			assert.Equal(t, tracking.ContextHome, l.Context)
		}
	}
}

func mean(values []int) float64 {
	var sum int
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
