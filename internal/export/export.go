// Package export renders the appointment book as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"dental-clinic-admin/internal/calendar"
	"dental-clinic-admin/internal/model"
)

const (
	AppointmentsSheet = "Appointments"
	RevenueSheet      = "Revenue"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var appointmentHeader = []any{"Date", "Patient", "Title", "Status", "Cost", "Follow-up of"}

var revenueHeader = []any{"Day", "Completed", "Revenue"}

// Workbook builds the export. Dates are written in loc; patients missing
// from the roster keep their raw id.
func Workbook(appts []model.Appointment, patients []model.Patient, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	names := make(map[string]string, len(patients))
	for _, p := range patients {
		names[p.ID] = p.Name
	}

	sorted := append([]model.Appointment{}, appts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AppointmentDate.Before(sorted[j].AppointmentDate)
	})

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", AppointmentsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RevenueSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := writeRow(f, AppointmentsSheet, 1, appointmentHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, a := range sorted {
		name := names[a.PatientID]
		if name == "" {
			name = a.PatientID
		}
		row := []any{
			a.AppointmentDate.In(loc).Format("2006-01-02 15:04"),
			name,
			a.Title,
			string(a.Status),
			a.Cost,
			a.PreviousAppointmentID,
		}
		if err := writeRow(f, AppointmentsSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeRow(f, RevenueSheet, 1, revenueHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, d := range Revenue(sorted, loc) {
		if err := writeRow(f, RevenueSheet, i+2, []any{d.Day, d.Completed, d.Total}); err != nil {
			f.Close()
			return nil, err
		}
	}

	for _, sheet := range []string{AppointmentsSheet, RevenueSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("style %s: %w", sheet, err)
		}
	}
	if err := f.SetColWidth(AppointmentsSheet, "A", "C", 22); err != nil {
		f.Close()
		return nil, fmt.Errorf("column width: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write renders the workbook into w.
func Write(w io.Writer, appts []model.Appointment, patients []model.Patient, loc *time.Location) error {
	f, err := Workbook(appts, patients, loc)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// DayRevenue sums the completed appointments of one calendar day.
type DayRevenue struct {
	Day       string
	Completed int
	Total     float64
}

// Revenue groups completed appointments by day in loc, oldest first.
func Revenue(appts []model.Appointment, loc *time.Location) []DayRevenue {
	byDay := map[string]*DayRevenue{}
	for _, a := range appts {
		if a.Status != model.StatusCompleted {
			continue
		}
		k := calendar.Key(a.AppointmentDate.In(loc))
		d, ok := byDay[k]
		if !ok {
			d = &DayRevenue{Day: k}
			byDay[k] = d
		}
		d.Completed++
		d.Total += a.Cost
	}
	out := make([]DayRevenue, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
