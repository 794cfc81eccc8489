// Package calendar buckets appointments into the days of a week or month
// view. Everything here is pure; the zone of the reference time decides
// which day an appointment falls on.
package calendar

import (
	"fmt"
	"time"

	"dental-clinic-admin/internal/model"
)

const KeyLayout = "2006-01-02"

type View string

const (
	Week  View = "week"
	Month View = "month"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case Week, Month:
		return View(s), nil
	case "":
		return Month, nil
	}
	return "", fmt.Errorf("unknown calendar view %q", s)
}

type Projection struct {
	View View
	// Days runs from the first to the last day of the window, inclusive,
	// each at local midnight.
	Days []time.Time
	// ByDate holds every appointment of the input keyed by day, in input
	// order. Days outside the window are kept as well.
	ByDate map[string][]model.Appointment
}

func Key(t time.Time) string { return t.Format(KeyLayout) }

// InWindow reports whether key is one of the displayed days.
func (p Projection) InWindow(key string) bool {
	if len(p.Days) == 0 {
		return false
	}
	return key >= Key(p.Days[0]) && key <= Key(p.Days[len(p.Days)-1])
}

// On returns the appointments of a displayed day.
func (p Projection) On(day time.Time) []model.Appointment {
	return p.ByDate[Key(day)]
}

func Project(appointments []model.Appointment, ref time.Time, view View) Projection {
	start, end := Window(ref, view)
	p := Projection{View: view, ByDate: map[string][]model.Appointment{}}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		p.Days = append(p.Days, d)
	}
	loc := ref.Location()
	for _, a := range appointments {
		k := Key(a.AppointmentDate.In(loc))
		p.ByDate[k] = append(p.ByDate[k], a)
	}
	return p
}

// Window returns the first and last day of the view containing ref. Weeks
// start on Sunday.
func Window(ref time.Time, view View) (time.Time, time.Time) {
	y, m, d := ref.Date()
	loc := ref.Location()
	if view == Week {
		start := time.Date(y, m, d-int(ref.Weekday()), 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 6)
	}
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, -1)
}

// Next moves ref forward by one view.
func Next(ref time.Time, view View) time.Time { return shift(ref, view, 1) }

// Prev moves ref back by one view.
func Prev(ref time.Time, view View) time.Time { return shift(ref, view, -1) }

func shift(ref time.Time, view View, n int) time.Time {
	if view == Week {
		return ref.AddDate(0, 0, 7*n)
	}
	// anchor on the first so Jan 31 + 1 month stays in February
	y, m, _ := ref.Date()
	return time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, ref.Location())
}
