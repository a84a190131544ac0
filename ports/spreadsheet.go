package ports

import "sensetrack/domain/tracking"

// SpreadsheetReader parses caregiver records from a workbook or CSV export
type SpreadsheetReader interface {
	ReadLogs(path string) ([]tracking.LogEntry, error)
	ReadSchedule(path string) ([]tracking.ScheduleEntry, error)
}

// SpreadsheetWriter exports caregiver records to a workbook
type SpreadsheetWriter interface {
	WriteWorkbook(path string, logs []tracking.LogEntry, schedule []tracking.ScheduleEntry) error
}
