package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/app"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
)

func TestParseNow(t *testing.T) {
	fallback := time.Date(2024, 5, 14, 14, 30, 0, 0, time.UTC)

	got, err := parseNow("", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	got, err = parseNow("2024-05-10T08:00:00Z", fallback)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), got)

	_, err = parseNow("yesterday", fallback)
	assert.Error(t, err)
}

func TestPrinters(t *testing.T) {
	var buf bytes.Buffer

	printTransitions(&buf, transitions.Stats{
		TotalTransitions:  12,
		AverageDifficulty: 5.5,
		HardestTransitions: []transitions.ActivityStats{
			{Activity: "Recess", AverageDifficulty: 7.2, Count: 12, Trend: transitions.TrendImproving, TrendPValue: 0.01, Confidence: transitions.ConfidenceHigh},
		},
	})
	assert.Contains(t, buf.String(), "1. Recess  avg 7.2 over 12  trend improving")

	buf.Reset()
	printContexts(&buf, nil)
	assert.Contains(t, buf.String(), "Not enough logs")

	buf.Reset()
	printContexts(&buf, &contexts.Comparison{
		Home:   contexts.Metrics{Context: "home", LogCount: 10, AverageArousal: 3.5},
		School: contexts.Metrics{Context: "school", LogCount: 8, AverageArousal: 7},
		Differences: []contexts.Difference{
			{Significance: contexts.SignificanceHigh, Description: "Arousal is higher at school"},
		},
	})
	assert.Contains(t, buf.String(), "- [high] Arousal is higher at school")

	buf.Reset()
	printRisk(&buf, risk.Result{Level: risk.LevelHigh, Score: 70, SameWeekdayLogs: 6, PredictedHighArousalWindow: "15:00-16:00"})
	assert.Contains(t, buf.String(), "Risk: HIGH (score 70/100) from 6 same-weekday logs")
	assert.Contains(t, buf.String(), "Watch: 15:00-16:00")

	buf.Reset()
	printGoals(&buf, nil)
	assert.Contains(t, buf.String(), "No goals yet.")

	buf.Reset()
	printGoals(&buf, []app.GoalSummary{{Title: "Brush teeth", Status: "on_track", Percent: 80, CurrentValue: 8, TargetValue: 10, TargetUnit: "times/week", DaysRemaining: 30}})
	assert.Contains(t, buf.String(), "- Brush teeth [on_track] 80% (8 of 10 times/week), 30 days left")
}
