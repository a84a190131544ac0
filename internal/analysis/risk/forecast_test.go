package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
)

// a Tuesday afternoon
var now = time.Date(2024, 5, 14, 14, 30, 0, 0, time.UTC)

func tuesdayLog(weeksAgo, hour, arousal int) tracking.LogEntry {
	day := now.AddDate(0, 0, -7*weeksAgo)
	return tracking.LogEntry{
		ID:        core.NewID(),
		Timestamp: time.Date(day.Year(), day.Month(), day.Day(), hour, 10, 0, 0, time.UTC),
		Context:   tracking.ContextHome,
		Arousal:   arousal,
		Valence:   5,
		Energy:    5,
	}
}

func calmTuesdays(n int) []tracking.LogEntry {
	out := make([]tracking.LogEntry, n)
	for i := range out {
		out[i] = tuesdayLog(1+i%4, 10, 3)
	}
	return out
}

func TestForecast_EmptyInput(t *testing.T) {
	assert.Equal(t, Result{Level: LevelLow, Score: 0, ContributingFactors: []string{}}, Forecast(nil, now))
	assert.Equal(t, Result{Level: LevelLow, Score: 0, ContributingFactors: []string{}}, Forecast([]tracking.LogEntry{}, now))
}

func TestForecast_NotEnoughSameWeekdayData(t *testing.T) {
	logs := calmTuesdays(3)
	// other weekday, outside the window, and in the future
	logs = append(logs,
		tracking.LogEntry{Timestamp: now.AddDate(0, 0, -1), Arousal: 9},
		tuesdayLog(6, 10, 9),
		tuesdayLog(0, 18, 9),
	)

	res := Forecast(logs, now)
	assert.Equal(t, LevelLow, res.Level)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 3, res.SameWeekdayLogs)
	require.Len(t, res.ContributingFactors, 1)
	assert.Contains(t, res.ContributingFactors[0], "Not enough data")
	assert.Contains(t, res.ContributingFactors[0], "tuesday")
	assert.Empty(t, res.PredictedHighArousalWindow)
}

func TestForecast_UpcomingRiskHour(t *testing.T) {
	logs := append(calmTuesdays(4), tuesdayLog(1, 16, 8), tuesdayLog(2, 16, 9))

	res := Forecast(logs, now)
	assert.Equal(t, 63, res.Score)
	assert.Equal(t, LevelHigh, res.Level)
	assert.Equal(t, "16:00-17:00", res.PredictedHighArousalWindow)
	require.Len(t, res.ContributingFactors, 1)
	assert.Contains(t, res.ContributingFactors[0], "16:00-17:00")
	assert.InDelta(t, 0.333, res.HighArousalRate, 1e-9)
}

func TestForecast_ElevatedWithoutUpcomingHour(t *testing.T) {
	// incidents earlier in the day fall outside the lookahead
	logs := append(calmTuesdays(4), tuesdayLog(1, 9, 8), tuesdayLog(2, 9, 9))

	res := Forecast(logs, now)
	assert.Equal(t, 33, res.Score)
	assert.Equal(t, LevelModerate, res.Level)
	assert.Empty(t, res.PredictedHighArousalWindow)
	require.Len(t, res.ContributingFactors, 1)
	assert.Contains(t, res.ContributingFactors[0], "Elevated stress")
}

func TestForecast_CalmPeriod(t *testing.T) {
	res := Forecast(calmTuesdays(8), now)
	assert.Equal(t, LevelLow, res.Level)
	assert.Equal(t, 0, res.Score)
	require.Len(t, res.ContributingFactors, 1)
	assert.Contains(t, res.ContributingFactors[0], "Calm period")
}

func TestForecast_SingleIncidentHourIsNotARiskHour(t *testing.T) {
	logs := append(calmTuesdays(5), tuesdayLog(1, 15, 9))

	res := Forecast(logs, now)
	assert.Equal(t, 17, res.Score)
	assert.Equal(t, LevelLow, res.Level)
	assert.Empty(t, res.PredictedHighArousalWindow)
}

func TestForecast_WrapsPastMidnight(t *testing.T) {
	late := time.Date(2024, 5, 14, 22, 0, 0, 0, time.UTC)
	logs := calmTuesdays(4)
	for w := 1; w <= 2; w++ {
		d := late.AddDate(0, 0, -7*w)
		logs = append(logs, tracking.LogEntry{
			Timestamp: time.Date(d.Year(), d.Month(), d.Day(), 1, 0, 0, 0, time.UTC),
			Arousal:   8,
		})
	}

	res := Forecast(logs, late)
	assert.Equal(t, "01:00-02:00", res.PredictedHighArousalWindow)
	assert.Equal(t, LevelHigh, res.Level)
}

func TestForecast_PeakHourSelection(t *testing.T) {
	logs := []tracking.LogEntry{
		tuesdayLog(1, 15, 8), tuesdayLog(2, 15, 8),
		tuesdayLog(1, 17, 8), tuesdayLog(2, 17, 8), tuesdayLog(3, 17, 8),
		tuesdayLog(1, 16, 8), tuesdayLog(2, 16, 8), tuesdayLog(3, 16, 8),
	}

	res := Forecast(logs, now)
	// 16 and 17 tie on count; the sooner hour wins
	assert.Equal(t, "16:00-17:00", res.PredictedHighArousalWindow)
	assert.Equal(t, 100, res.Score, "score is clamped")
}

func TestForecast_CurrentHourIncluded(t *testing.T) {
	logs := append(calmTuesdays(4), tuesdayLog(1, 14, 8), tuesdayLog(2, 14, 8))
	assert.Equal(t, "14:00-15:00", Forecast(logs, now).PredictedHighArousalWindow)

	edge := time.Date(2024, 5, 14, 23, 0, 0, 0, time.UTC)
	logs = append(calmTuesdays(4), tuesdayLog(1, 23, 8), tuesdayLog(2, 23, 8))
	assert.Equal(t, "23:00-00:00", Forecast(logs, edge).PredictedHighArousalWindow)
}

func TestNewForecaster_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighScore = cfg.ModerateScore
	_, err := NewForecaster(cfg)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.MinSameWeekdayLogs = 2
	f, err := NewForecaster(cfg)
	require.NoError(t, err)
	assert.NotContains(t, f.Forecast(calmTuesdays(2), now).ContributingFactors[0], "Not enough data")
}
