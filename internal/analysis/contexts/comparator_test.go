package contexts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
)

var base = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

type logOpt func(*tracking.LogEntry)

func withTriggers(t ...string) logOpt {
	return func(l *tracking.LogEntry) { l.SensoryTriggers = t }
}

func withStrategy(s string, e tracking.Effectiveness) logOpt {
	return func(l *tracking.LogEntry) {
		l.Strategies = []string{s}
		l.StrategyEffectiveness = e
	}
}

func atHour(h int) logOpt {
	return func(l *tracking.LogEntry) {
		l.Timestamp = time.Date(l.Timestamp.Year(), l.Timestamp.Month(), l.Timestamp.Day(), h, 0, 0, 0, time.UTC)
	}
}

func logAt(ctx tracking.Context, day, arousal, energy int, opts ...logOpt) tracking.LogEntry {
	l := tracking.LogEntry{
		ID:        core.NewID(),
		Timestamp: base.AddDate(0, 0, day),
		Context:   ctx,
		Arousal:   arousal,
		Valence:   5,
		Energy:    energy,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return tracking.EnrichLog(l, time.UTC)
}

func logs(ctx tracking.Context, arousal []int, opts ...logOpt) []tracking.LogEntry {
	out := make([]tracking.LogEntry, len(arousal))
	for i, a := range arousal {
		out[i] = logAt(ctx, i, a, 5, opts...)
	}
	return out
}

func crisis(ctx tracking.Context, day int) tracking.CrisisEvent {
	return tracking.CrisisEvent{
		ID:        core.NewID(),
		Timestamp: base.AddDate(0, 0, day),
		Context:   ctx,
		Type:      tracking.CrisisMeltdown,
	}
}

func findDifference(c *Comparison, kind DifferenceKind, subject string) (Difference, bool) {
	for _, d := range c.Differences {
		if d.Kind == kind && d.Subject == subject {
			return d, true
		}
	}
	return Difference{}, false
}

func TestCompare_InsufficientData(t *testing.T) {
	assert.Nil(t, Compare(nil, nil))

	input := append(logs(tracking.ContextHome, []int{5, 5, 5, 5, 5}), logs(tracking.ContextSchool, []int{5, 5, 5, 5})...)
	assert.Nil(t, Compare(input, nil))
}

func TestCompare_PerContextMetrics(t *testing.T) {
	home := []tracking.LogEntry{
		logAt(tracking.ContextHome, 0, 4, 6, withTriggers("noise", "light"), withStrategy("deep pressure", tracking.EffectivenessHelped)),
		logAt(tracking.ContextHome, 0, 5, 6, withTriggers("noise"), withStrategy("deep pressure", tracking.EffectivenessNoChange)),
		logAt(tracking.ContextHome, 1, 3, 7, withTriggers("noise", "noise"), withStrategy("headphones", tracking.EffectivenessHelped)),
		logAt(tracking.ContextHome, 2, 4, 5),
		logAt(tracking.ContextHome, 3, 6, 5, withTriggers("light")),
	}
	school := logs(tracking.ContextSchool, []int{5, 5, 5, 5, 5})
	crises := []tracking.CrisisEvent{crisis(tracking.ContextHome, 0), crisis(tracking.ContextHome, 1)}

	c := Compare(append(home, school...), crises)
	require.NotNil(t, c)

	m := c.Home
	assert.Equal(t, tracking.ContextHome, m.Context)
	assert.Equal(t, 5, m.LogCount)
	assert.Equal(t, 2, m.CrisisCount)
	assert.Equal(t, 4.4, m.AverageArousal)
	assert.Equal(t, 5.8, m.AverageEnergy)
	assert.Equal(t, 4, m.LoggingDays)
	assert.Equal(t, 0.5, m.CrisisPerDay)

	require.Len(t, m.TopTriggers, 2)
	assert.Equal(t, TriggerFrequency{Trigger: "noise", Count: 3, Percentage: 60}, m.TopTriggers[0])
	assert.Equal(t, TriggerFrequency{Trigger: "light", Count: 2, Percentage: 40}, m.TopTriggers[1])

	require.Len(t, m.TopStrategies, 2)
	assert.Equal(t, "deep pressure", m.TopStrategies[0].Strategy)
	assert.Equal(t, 2, m.TopStrategies[0].UsageCount)
	assert.Equal(t, 50.0, m.TopStrategies[0].SuccessRate)
	assert.Equal(t, 100.0, m.TopStrategies[1].SuccessRate)

	assert.Equal(t, 0, c.School.CrisisCount)
	assert.Equal(t, 0.0, c.School.CrisisPerDay)
}

func TestCompare_PeakHoursSortedByArousal(t *testing.T) {
	home := []tracking.LogEntry{
		logAt(tracking.ContextHome, 0, 3, 5, atHour(8)),
		logAt(tracking.ContextHome, 1, 5, 5, atHour(8)),
		logAt(tracking.ContextHome, 0, 8, 5, atHour(17)),
		logAt(tracking.ContextHome, 1, 9, 5, atHour(17)),
		logAt(tracking.ContextHome, 2, 6, 5, atHour(12)),
	}
	c := Compare(append(home, logs(tracking.ContextSchool, []int{5, 5, 5, 5, 5})...), nil)
	require.NotNil(t, c)

	require.Len(t, c.Home.PeakHours, 3)
	assert.Equal(t, HourlyArousal{Hour: 17, AverageArousal: 8.5, Count: 2}, c.Home.PeakHours[0])
	assert.Equal(t, 12, c.Home.PeakHours[1].Hour)
	assert.Equal(t, 8, c.Home.PeakHours[2].Hour)
}

func TestCompare_ArousalDifferenceSignificance(t *testing.T) {
	home := logs(tracking.ContextHome, []int{3, 4, 3, 4, 3, 4})
	school := logs(tracking.ContextSchool, []int{7, 8, 7, 8, 7, 8})

	c := Compare(append(home, school...), nil)
	require.NotNil(t, c)

	d, ok := findDifference(c, KindArousal, "")
	require.True(t, ok)
	assert.Equal(t, SignificanceHigh, d.Significance)
	assert.Equal(t, -4.0, d.Delta)
	require.NotNil(t, d.PValue)
	assert.Less(t, *d.PValue, 0.01)
	assert.Contains(t, d.Description, "higher at school")

	_, ok = findDifference(c, KindEnergy, "")
	assert.False(t, ok, "equal energy must not be reported")
}

func TestCompare_NoisyArousalNotReported(t *testing.T) {
	home := logs(tracking.ContextHome, []int{2, 9, 4, 8, 3, 7})
	school := logs(tracking.ContextSchool, []int{8, 3, 7, 2, 9, 5})

	c := Compare(append(home, school...), nil)
	require.NotNil(t, c)
	_, ok := findDifference(c, KindArousal, "")
	assert.False(t, ok)
}

func TestCompare_CrisisRatio(t *testing.T) {
	input := append(logs(tracking.ContextHome, []int{5, 5, 5, 5, 5}), logs(tracking.ContextSchool, []int{5, 5, 5, 5, 5})...)

	tests := []struct {
		name   string
		home   int
		school int
		want   Significance
		found  bool
	}{
		{"similar rates", 2, 2, "", false},
		{"double", 4, 2, SignificanceMedium, true},
		{"triple", 3, 1, SignificanceHigh, true},
		{"single crisis only at one context", 1, 0, "", false},
		{"repeated crises only at one context", 0, 2, SignificanceHigh, true},
		{"none", 0, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var crises []tracking.CrisisEvent
			for i := 0; i < tt.home; i++ {
				crises = append(crises, crisis(tracking.ContextHome, i))
			}
			for i := 0; i < tt.school; i++ {
				crises = append(crises, crisis(tracking.ContextSchool, i))
			}

			c := Compare(input, crises)
			require.NotNil(t, c)
			d, ok := findDifference(c, KindCrisisFrequency, "")
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, d.Significance)
			}
		})
	}
}

func TestCompare_TriggerPresentInOnlyOneContext(t *testing.T) {
	home := logs(tracking.ContextHome, []int{5, 5, 5, 5, 5})
	for i := 0; i < 3; i++ {
		home[i].SensoryTriggers = []string{"crowds"}
	}
	home[4].SensoryTriggers = []string{"itchy clothes"} // 20%, exactly at threshold
	school := logs(tracking.ContextSchool, []int{5, 5, 5, 5, 5}, withTriggers("bell"))
	school[0].SensoryTriggers = []string{"bell", "crowds"}

	c := Compare(append(home, school...), nil)
	require.NotNil(t, c)

	// crowds is in the school top list too, so it is not exclusive
	_, ok := findDifference(c, KindTrigger, "crowds")
	assert.False(t, ok)

	itchy, ok := findDifference(c, KindTrigger, "itchy clothes")
	require.True(t, ok)
	assert.Equal(t, 20.0, itchy.HomeValue)
	assert.Equal(t, 0.0, itchy.SchoolValue)
	assert.Equal(t, SignificanceMedium, itchy.Significance)

	bell, ok := findDifference(c, KindTrigger, "bell")
	require.True(t, ok)
	assert.Equal(t, 100.0, bell.SchoolValue)
	assert.Equal(t, -100.0, bell.Delta)
}

func TestCompare_StrategyEffectivenessDifference(t *testing.T) {
	outcomes := func(ctx tracking.Context, helped int) []tracking.LogEntry {
		out := make([]tracking.LogEntry, 5)
		for i := range out {
			e := tracking.EffectivenessNoChange
			if i < helped {
				e = tracking.EffectivenessHelped
			}
			out[i] = logAt(ctx, i, 5, 5, withStrategy("fidget", e))
		}
		return out
	}
	c := Compare(append(outcomes(tracking.ContextHome, 4), outcomes(tracking.ContextSchool, 1)...), nil)
	require.NotNil(t, c)
	d, ok := findDifference(c, KindStrategy, "fidget")
	require.True(t, ok)
	assert.Equal(t, 80.0, d.HomeValue)
	assert.Equal(t, 20.0, d.SchoolValue)
	assert.Equal(t, SignificanceHigh, d.Significance)

	// 60% vs 40% is exactly at the threshold and not reported
	c = Compare(append(outcomes(tracking.ContextHome, 3), outcomes(tracking.ContextSchool, 2)...), nil)
	require.NotNil(t, c)
	_, ok = findDifference(c, KindStrategy, "fidget")
	assert.False(t, ok)
}

func TestCompare_DifferencesNeverNil(t *testing.T) {
	c := Compare(append(logs(tracking.ContextHome, []int{5, 5, 5, 5, 5}), logs(tracking.ContextSchool, []int{5, 5, 5, 5, 5})...), nil)
	require.NotNil(t, c)
	assert.NotNil(t, c.Differences)
	assert.Empty(t, c.Differences)
}

func TestNewComparator_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrongDifferenceThreshold = 10
	_, err := NewComparator(cfg)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.MinLogsPerContext = 3
	cmp, err := NewComparator(cfg)
	require.NoError(t, err)
	input := append(logs(tracking.ContextHome, []int{5, 5, 5}), logs(tracking.ContextSchool, []int{5, 5, 5})...)
	assert.NotNil(t, cmp.Compare(input, nil))
}
