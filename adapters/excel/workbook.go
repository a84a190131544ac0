package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sensetrack/domain/core"
	"sensetrack/domain/tracking"
	"sensetrack/internal/logger"
	"sensetrack/ports"
)

const (
	LogsSheet     = "Logs"
	ScheduleSheet = "Schedule"
)

var logColumns = []string{
	"id", "timestamp", "context", "arousal", "valence", "energy",
	"sensory_triggers", "context_triggers", "strategies", "strategy_effectiveness",
	"duration_minutes", "note",
}

var scheduleColumns = []string{
	"id", "date", "context", "activity", "scheduled_start", "scheduled_end", "status",
	"transition_difficulty", "transition_support", "note",
}

// Workbook reads and writes caregiver records as xlsx workbooks or CSV files
type Workbook struct {
	loc *time.Location
	log *logger.Logger
}

var (
	_ ports.SpreadsheetReader = (*Workbook)(nil)
	_ ports.SpreadsheetWriter = (*Workbook)(nil)
)

// NewWorkbook creates a workbook adapter; dates without a zone are read in loc
func NewWorkbook(loc *time.Location, log *logger.Logger) *Workbook {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Workbook{loc: loc, log: log.With("component", "excel")}
}

// row maps header names to trimmed cell values
type row map[string]string

// ReadLogs parses the Logs sheet of an xlsx file, or a whole CSV file
func (w *Workbook) ReadLogs(path string) ([]tracking.LogEntry, error) {
	rows, err := w.readRows(path, LogsSheet)
	if err != nil {
		return nil, err
	}

	logs := make([]tracking.LogEntry, 0, len(rows))
	for i, r := range rows {
		entry, err := w.parseLog(r)
		if err != nil {
			// header is row 1
			return nil, fmt.Errorf("%s row %d: %w", LogsSheet, i+2, err)
		}
		logs = append(logs, entry)
	}
	w.log.Info("read logs", "path", path, "count", len(logs))
	return logs, nil
}

// ReadSchedule parses the Schedule sheet of an xlsx file, or a whole CSV file
func (w *Workbook) ReadSchedule(path string) ([]tracking.ScheduleEntry, error) {
	rows, err := w.readRows(path, ScheduleSheet)
	if err != nil {
		return nil, err
	}

	entries := make([]tracking.ScheduleEntry, 0, len(rows))
	for i, r := range rows {
		entry, err := w.parseSchedule(r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ScheduleSheet, i+2, err)
		}
		entries = append(entries, entry)
	}
	w.log.Info("read schedule", "path", path, "count", len(entries))
	return entries, nil
}

// WriteWorkbook exports logs and schedule entries to an xlsx file with one sheet each
func (w *Workbook) WriteWorkbook(path string, logs []tracking.LogEntry, schedule []tracking.ScheduleEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), LogsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ScheduleSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", ScheduleSheet, err)
	}

	logRows := make([][]interface{}, 0, len(logs))
	for _, l := range logs {
		logRows = append(logRows, []interface{}{
			l.ID.String(), l.Timestamp.Format(time.RFC3339), string(l.Context),
			l.Arousal, l.Valence, l.Energy,
			joinTags(l.SensoryTriggers), joinTags(l.ContextTriggers), joinTags(l.Strategies),
			string(l.StrategyEffectiveness), l.DurationMinutes, l.Note,
		})
	}
	if err := writeSheet(f, LogsSheet, logColumns, logRows); err != nil {
		return err
	}

	scheduleRows := make([][]interface{}, 0, len(schedule))
	for _, s := range schedule {
		difficulty := interface{}("")
		if s.TransitionDifficulty != nil {
			difficulty = *s.TransitionDifficulty
		}
		scheduleRows = append(scheduleRows, []interface{}{
			s.ID.String(), s.Date.Format(core.DateLayout), string(s.Context), s.Activity.Title,
			s.Activity.ScheduledStart, s.Activity.ScheduledEnd, string(s.Status),
			difficulty, joinTags(s.TransitionSupport), s.Note,
		})
	}
	if err := writeSheet(f, ScheduleSheet, scheduleColumns, scheduleRows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	w.log.Info("wrote workbook", "path", path, "logs", len(logs), "schedule", len(schedule))
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func (w *Workbook) readRows(path, sheet string) ([]row, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	var raw [][]string
	var err error
	start := time.Now()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		raw, err = readCSV(path)
	case ".xlsx", ".xlsm":
		raw, err = readXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	w.log.Debug("rows loaded", "path", path, "rows", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	if len(raw) < 1 {
		return nil, fmt.Errorf("%s has no header row", path)
	}
	return toRows(raw), nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// readXLSX reads the named sheet, falling back to the first sheet
func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// toRows maps each data row by lower-cased header, dropping blank rows
func toRows(raw [][]string) []row {
	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		r := make(row, len(headers))
		blank := true
		for j, cell := range cells {
			if j >= len(headers) {
				break
			}
			v := strings.TrimSpace(cell)
			if v != "" {
				blank = false
			}
			r[headers[j]] = v
		}
		if !blank {
			rows = append(rows, r)
		}
	}
	return rows
}

func (w *Workbook) parseLog(r row) (tracking.LogEntry, error) {
	ts, err := core.ParseTime(r["timestamp"], w.loc)
	if err != nil {
		return tracking.LogEntry{}, core.NewValidationError("timestamp", fmt.Sprintf("%q is not a date", r["timestamp"]))
	}

	entry := tracking.LogEntry{
		ID:                    core.ID(r["id"]),
		Timestamp:             ts,
		Context:               tracking.Context(strings.ToLower(r["context"])),
		SensoryTriggers:       splitTags(r["sensory_triggers"]),
		ContextTriggers:       splitTags(r["context_triggers"]),
		Strategies:            splitTags(r["strategies"]),
		StrategyEffectiveness: tracking.Effectiveness(strings.ToLower(r["strategy_effectiveness"])),
		Note:                  r["note"],
	}
	if entry.Arousal, err = parseInt(r, "arousal"); err != nil {
		return entry, err
	}
	if entry.Valence, err = parseInt(r, "valence"); err != nil {
		return entry, err
	}
	if entry.Energy, err = parseInt(r, "energy"); err != nil {
		return entry, err
	}
	if r["duration_minutes"] != "" {
		if entry.DurationMinutes, err = parseInt(r, "duration_minutes"); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

func (w *Workbook) parseSchedule(r row) (tracking.ScheduleEntry, error) {
	date, err := core.ParseTime(r["date"], w.loc)
	if err != nil {
		return tracking.ScheduleEntry{}, core.NewValidationError("date", fmt.Sprintf("%q is not a date", r["date"]))
	}

	entry := tracking.ScheduleEntry{
		ID:      core.ID(r["id"]),
		Date:    date,
		Context: tracking.Context(strings.ToLower(r["context"])),
		Activity: tracking.ScheduleActivity{
			Title:          r["activity"],
			ScheduledStart: r["scheduled_start"],
			ScheduledEnd:   r["scheduled_end"],
		},
		Status:            tracking.ScheduleStatus(strings.ToLower(r["status"])),
		TransitionSupport: splitTags(r["transition_support"]),
		Note:              r["note"],
	}
	if r["transition_difficulty"] != "" {
		d, err := parseInt(r, "transition_difficulty")
		if err != nil {
			return entry, err
		}
		entry.TransitionDifficulty = &d
	}
	return entry, nil
}

func parseInt(r row, field string) (int, error) {
	v, err := strconv.Atoi(r[field])
	if err != nil {
		// xlsx numeric cells can come back as "7.0"
		f, ferr := strconv.ParseFloat(r[field], 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, core.NewValidationError(field, fmt.Sprintf("%q is not a whole number", r[field]))
		}
		v = int(f)
	}
	return v, nil
}

func splitTags(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' })
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tags = append(tags, strings.TrimSpace(p))
	}
	return tracking.UniqueTags(tags)
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
