// Package export renders availability evidence as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

// LogSheetName is the worksheet holding availability log rows.
const LogSheetName = "Availability"

// LogColumns are the header cells of the availability worksheet.
var LogColumns = []string{
	"Slot start",
	"Slot end",
	"Employee",
	"Status",
	"Reason",
	"Conflicting meeting",
	"Checked at",
}

// WriteAvailabilityLogs writes one worksheet row per log. Times are rendered
// in loc, or UTC when loc is nil.
func WriteAvailabilityLogs(w io.Writer, meeting scheduler.Meeting, logs []scheduler.AvailabilityLog, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LogSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   meeting.Title,
		Subject: meeting.ID,
	}); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}

	if err := writeRow(f, 1, stringsToCells(LogColumns)); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(LogColumns), 1)
		_ = f.SetCellStyle(LogSheetName, "A1", last, bold)
	}

	for i, log := range logs {
		row := []any{
			log.Slot.Start.In(loc).Format(time.RFC3339),
			log.Slot.End.In(loc).Format(time.RFC3339),
			log.EmployeeID,
			string(log.Status),
			log.Reason.OrElse(""),
			log.ConflictingMeetingID.OrElse(""),
			log.CheckedAt.In(loc).Format(time.RFC3339),
		}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(LogSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, row int, values []any) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(LogSheetName, cell, value); err != nil {
			return fmt.Errorf("write %s: %w", cell, err)
		}
	}
	return nil
}

func stringsToCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
