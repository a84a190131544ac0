package excel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
)

func TestWorkbook_WriteThenRead(t *testing.T) {
	w := NewWorkbook(time.UTC, nil)
	path := filepath.Join(t.TempDir(), "export.xlsx")
	difficulty := 6

	logs := []tracking.LogEntry{{
		ID:                    core.NewID(),
		Timestamp:             time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC),
		Context:               tracking.ContextSchool,
		Arousal:               7,
		Valence:               4,
		Energy:                3,
		SensoryTriggers:       []string{"noise", "bright lights"},
		Strategies:            []string{"headphones"},
		StrategyEffectiveness: tracking.EffectivenessHelped,
		DurationMinutes:       15,
		Note:                  "assembly",
	}}
	schedule := []tracking.ScheduleEntry{{
		ID:                   core.NewID(),
		Date:                 time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Context:              tracking.ContextSchool,
		Activity:             tracking.ScheduleActivity{Title: "Recess to Math", ScheduledStart: "10:15", ScheduledEnd: "11:00"},
		Status:               tracking.StatusCompleted,
		TransitionDifficulty: &difficulty,
		TransitionSupport:    []string{"timer", "visual schedule"},
	}, {
		ID:       core.NewID(),
		Date:     time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		Context:  tracking.ContextHome,
		Activity: tracking.ScheduleActivity{Title: "Bath"},
		Status:   tracking.StatusUpcoming,
	}}

	require.NoError(t, w.WriteWorkbook(path, logs, schedule))

	gotLogs, err := w.ReadLogs(path)
	require.NoError(t, err)
	require.Len(t, gotLogs, 1)
	assert.Equal(t, logs[0].ID, gotLogs[0].ID)
	assert.True(t, logs[0].Timestamp.Equal(gotLogs[0].Timestamp))
	assert.Equal(t, 7, gotLogs[0].Arousal)
	assert.Equal(t, []string{"noise", "bright lights"}, gotLogs[0].SensoryTriggers)
	assert.Equal(t, tracking.EffectivenessHelped, gotLogs[0].StrategyEffectiveness)
	assert.Equal(t, 15, gotLogs[0].DurationMinutes)

	gotSchedule, err := w.ReadSchedule(path)
	require.NoError(t, err)
	require.Len(t, gotSchedule, 2)
	assert.Equal(t, "Recess to Math", gotSchedule[0].Activity.Title)
	require.NotNil(t, gotSchedule[0].TransitionDifficulty)
	assert.Equal(t, 6, *gotSchedule[0].TransitionDifficulty)
	assert.Equal(t, []string{"timer", "visual schedule"}, gotSchedule[0].TransitionSupport)
	assert.Nil(t, gotSchedule[1].TransitionDifficulty)
	assert.Equal(t, tracking.StatusUpcoming, gotSchedule[1].Status)
}

func TestWorkbook_ReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	content := "Timestamp,Context,Arousal,Valence,Energy,Sensory_Triggers,Strategies\n" +
		"2024-03-05 16:00,Home,8,3,4,\"noise; crowds, noise\",deep pressure\n" +
		",,,,,,\n" +
		"2024-03-06,school,5,5,5,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loc := time.FixedZone("UTC-5", -5*3600)
	logs, err := NewWorkbook(loc, nil).ReadLogs(path)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, tracking.ContextHome, logs[0].Context)
	assert.Equal(t, 16, logs[0].Timestamp.Hour())
	assert.Equal(t, loc, logs[0].Timestamp.Location())
	assert.Equal(t, []string{"noise", "crowds"}, logs[0].SensoryTriggers)
	assert.Equal(t, []string{"deep pressure"}, logs[0].Strategies)
	assert.Empty(t, logs[1].SensoryTriggers)
}

func TestWorkbook_ReadErrors(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkbook(time.UTC, nil)

	_, err := w.ReadLogs(filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "not found")

	txt := filepath.Join(dir, "logs.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	_, err = w.ReadLogs(txt)
	assert.ErrorContains(t, err, "unsupported")

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("timestamp,context,arousal,valence,energy\n2024-03-05,home,high,3,4\n"), 0o600))
	_, err = w.ReadLogs(bad)
	assert.True(t, core.IsValidationError(err))
	assert.ErrorContains(t, err, "row 2")

	badDate := filepath.Join(dir, "bad_date.csv")
	require.NoError(t, os.WriteFile(badDate, []byte("date,activity\nsoon,Math\n"), 0o600))
	_, err = w.ReadSchedule(badDate)
	assert.True(t, core.IsValidationError(err))
}
