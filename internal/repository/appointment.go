package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/store"
)

const (
	DefaultUpcoming = 10
	followUpTitle   = "Follow-up Appointment"
)

type Appointments struct {
	mu    sync.Mutex
	st    *store.Store
	items []model.Appointment
	now   func() time.Time
	loc   *time.Location
	log   *zap.Logger
}

type AppointmentOption func(*Appointments)

// WithClock replaces time.Now for Upcoming, Today and creation stamps.
func WithClock(now func() time.Time) AppointmentOption {
	return func(r *Appointments) { r.now = now }
}

// WithLocation sets the zone that decides which calendar day is "today".
func WithLocation(loc *time.Location) AppointmentOption {
	return func(r *Appointments) { r.loc = loc }
}

func NewAppointments(st *store.Store, log *zap.Logger, opts ...AppointmentOption) *Appointments {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Appointments{st: st, now: time.Now, loc: time.Local, log: log}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Appointments) Refresh(ctx context.Context) error {
	items, err := r.st.Appointments(ctx)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return nil
}

func (r *Appointments) List() []model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(model.Appointment) bool { return true })
}

func (r *Appointments) GetByID(id string) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(id); i >= 0 {
		return r.items[i].Clone(), nil
	}
	return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
}

func (r *Appointments) ByPatient(patientID string) []model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a model.Appointment) bool { return a.PatientID == patientID })
}

// Upcoming returns at most limit appointments dated strictly after now,
// earliest first. limit <= 0 means DefaultUpcoming.
func (r *Appointments) Upcoming(limit int) []model.Appointment {
	if limit <= 0 {
		limit = DefaultUpcoming
	}
	now := r.now()
	r.mu.Lock()
	out := r.filter(func(a model.Appointment) bool { return a.AppointmentDate.After(now) })
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Today returns the appointments on the current calendar day in the
// repository's location.
func (r *Appointments) Today() []model.Appointment {
	y, m, d := r.now().In(r.loc).Date()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a model.Appointment) bool {
		ay, am, ad := a.AppointmentDate.In(r.loc).Date()
		return ay == y && am == m && ad == d
	})
}

// ByDateRange is inclusive at both ends.
func (r *Appointments) ByDateRange(start, end time.Time) []model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a model.Appointment) bool {
		return !a.AppointmentDate.Before(start) && !a.AppointmentDate.After(end)
	})
}

// Add stores a as a new Scheduled appointment with a fresh id.
func (r *Appointments) Add(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a = r.stamp(a)
	if err := r.commit(ctx, append(r.snapshot(), a)); err != nil {
		return model.Appointment{}, err
	}
	r.log.Info("appointment added", zap.String("appointment_id", a.ID), zap.String("patient_id", a.PatientID))
	return a.Clone(), nil
}

// ApplyPatch merges patch into the stored record and persists it. It has
// no other side effects.
func (r *Appointments) ApplyPatch(ctx context.Context, id string, patch model.AppointmentPatch) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	next := r.snapshot()
	next[i] = next[i].Apply(patch)
	if err := r.commit(ctx, next); err != nil {
		return model.Appointment{}, err
	}
	return next[i].Clone(), nil
}

// ScheduleFollowUp inserts the follow-up that patch asks for, if any. A
// follow-up is due when the patch carries a next date and neither the patch
// nor the stored record is already flagged as having one. The returned patch
// has the flag set so applying it prevents a second follow-up. When nothing
// is due, patch comes back unchanged with a nil follow-up.
func (r *Appointments) ScheduleFollowUp(ctx context.Context, id string, patch model.AppointmentPatch) (model.AppointmentPatch, *model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return patch, nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	src := r.items[i]
	if patch.NextAppointmentDate == nil ||
		(patch.NextAppointmentCreated != nil && *patch.NextAppointmentCreated) ||
		src.NextAppointmentCreated {
		return patch, nil, nil
	}

	title := followUpTitle
	if patch.NextAppointmentNotes != nil && *patch.NextAppointmentNotes != "" {
		title = *patch.NextAppointmentNotes
	}
	patientID := src.PatientID
	if patch.PatientID != nil {
		patientID = *patch.PatientID
	}
	f := r.stamp(model.Appointment{
		PatientID:             patientID,
		Title:                 title,
		AppointmentDate:       *patch.NextAppointmentDate,
		PreviousAppointmentID: id,
	})
	if err := r.commit(ctx, append(r.snapshot(), f)); err != nil {
		return patch, nil, err
	}
	r.log.Info("follow-up scheduled", zap.String("appointment_id", f.ID), zap.String("previous_id", id))

	created := true
	patch.NextAppointmentCreated = &created
	f = f.Clone()
	return patch, &f, nil
}

func (r *Appointments) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	next := make([]model.Appointment, 0, len(r.items)-1)
	next = append(next, r.items[:i]...)
	next = append(next, r.items[i+1:]...)
	if err := r.commit(ctx, next); err != nil {
		return err
	}
	r.log.Info("appointment deleted", zap.String("appointment_id", id))
	return nil
}

// Removed is an appointment taken out by DeleteByPatient together with its
// position in the list before the delete.
type Removed struct {
	Index       int
	Appointment model.Appointment
}

// DeleteByPatient removes every appointment of patientID in one write and
// returns what it removed, in list order.
func (r *Appointments) DeleteByPatient(ctx context.Context, patientID string) ([]Removed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []model.Appointment
	var removed []Removed
	for i, a := range r.items {
		if a.PatientID == patientID {
			removed = append(removed, Removed{Index: i, Appointment: a.Clone()})
			continue
		}
		kept = append(kept, a)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := r.commit(ctx, nonNil(kept)); err != nil {
		return nil, err
	}
	return removed, nil
}

// Restore puts back appointments removed by DeleteByPatient at their old
// positions. Ids already present are skipped.
func (r *Appointments) Restore(ctx context.Context, items []Removed) error {
	if len(items) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := append([]Removed{}, items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	next := r.snapshot()
	for _, it := range sorted {
		if r.index(it.Appointment.ID) >= 0 {
			continue
		}
		at := min(max(it.Index, 0), len(next))
		next = slices.Insert(next, at, it.Appointment.Clone())
	}
	return r.commit(ctx, next)
}

func (r *Appointments) AddAttachment(ctx context.Context, id string, att model.Attachment) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	next := r.snapshot()
	next[i] = next[i].Clone()
	next[i].Attachments = append(next[i].Attachments, att)
	if err := r.commit(ctx, next); err != nil {
		return model.Appointment{}, err
	}
	return next[i].Clone(), nil
}

func (r *Appointments) RemoveAttachment(ctx context.Context, id string, index int) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return model.Appointment{}, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if index < 0 || index >= len(r.items[i].Attachments) {
		return model.Appointment{}, fmt.Errorf("attachment %d of %s: %w", index, id, ErrNotFound)
	}
	next := r.snapshot()
	old := next[i].Attachments
	atts := make([]model.Attachment, 0, len(old)-1)
	atts = append(atts, old[:index]...)
	atts = append(atts, old[index+1:]...)
	next[i].Attachments = atts
	if err := r.commit(ctx, next); err != nil {
		return model.Appointment{}, err
	}
	return next[i].Clone(), nil
}

// FollowUps lists appointments whose previousAppointmentId is id.
func (r *Appointments) FollowUps(id string) []model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(a model.Appointment) bool { return a.PreviousAppointmentID == id })
}

// Previous follows the weak back reference. ok is false when there is no
// reference or it dangles.
func (r *Appointments) Previous(id string) (model.Appointment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 || r.items[i].PreviousAppointmentID == "" {
		return model.Appointment{}, false
	}
	j := r.index(r.items[i].PreviousAppointmentID)
	if j < 0 {
		return model.Appointment{}, false
	}
	return r.items[j].Clone(), true
}

func (r *Appointments) stamp(a model.Appointment) model.Appointment {
	a.ID = store.GenerateID()
	a.CreatedAt = r.now().UTC()
	a.Status = model.StatusScheduled
	a.NextAppointmentCreated = false
	if a.Attachments == nil {
		a.Attachments = []model.Attachment{}
	}
	return a
}

func (r *Appointments) index(id string) int {
	for i, a := range r.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// filter returns clones in cache order. Callers hold mu.
func (r *Appointments) filter(keep func(model.Appointment) bool) []model.Appointment {
	out := []model.Appointment{}
	for _, a := range r.items {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

func (r *Appointments) snapshot() []model.Appointment {
	return append([]model.Appointment{}, r.items...)
}

func (r *Appointments) commit(ctx context.Context, next []model.Appointment) error {
	if err := r.st.SetAppointments(ctx, next); err != nil {
		r.log.Error("persist appointments", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	r.items = next
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
