package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Attendance"

var exportHeader = []interface{}{
	"Entry ID", "Employee ID", "Date", "Shift", "Status", "Check In", "Check Out", "Remote",
	"Break Minutes", "Namaz Minutes", "Total Hours", "Tasks", "Check In Reason", "Check Out Reason",
	"Notes", "Anomalous", "Auto Closed",
}

// Export implements attendance.EntryService.
func (a *AttendanceServiceImpl) Export(ctx context.Context, filter attendance.EntryFilter) ([]byte, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !user.HasPermission(actor.Role, user.PermissionAttendanceExport) {
		return nil, user.ErrManagerAccessRequired
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	entries, err := a.EntryRepository.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance entries: %w", err)
	}

	data, err := renderWorkbook(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to render attendance export: %w", err)
	}
	return data, nil
}

func renderWorkbook(entries []attendance.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := exportRow(e)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportRow(e attendance.Entry) []interface{} {
	checkOut := ""
	if e.CheckOut != nil {
		checkOut = e.CheckOut.Format(time.DateTime)
	}

	var totalHours interface{} = ""
	if e.TotalHours != nil {
		totalHours = *e.TotalHours
	}

	tasks := make([]string, 0, len(e.TasksCompleted))
	for _, t := range e.TasksCompleted {
		tasks = append(tasks, t.Task)
	}

	return []interface{}{
		e.ID,
		e.EmployeeID,
		e.Date.Format(time.DateOnly),
		string(e.Shift),
		string(e.Status),
		e.CheckIn.Format(time.DateTime),
		checkOut,
		yesNo(e.IsRemote),
		e.TotalBreakMinutes,
		e.TotalNamazMinutes,
		totalHours,
		strings.Join(tasks, "; "),
		e.CheckInReason,
		e.CheckOutReason,
		e.Notes,
		yesNo(e.Anomalous),
		yesNo(e.AutoClosed),
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
