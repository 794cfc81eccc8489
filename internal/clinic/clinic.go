// Package clinic wires the store, the session and both repositories of one
// clinic silo and holds the operations that span more than one of them.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dental-clinic-admin/internal/calendar"
	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/notify"
	"dental-clinic-admin/internal/repository"
	"dental-clinic-admin/internal/session"
	"dental-clinic-admin/internal/store"
)

const recentTreatments = 3

type App struct {
	// mu serializes operations that touch both collections.
	mu sync.Mutex

	st           *store.Store
	session      *session.Manager
	patients     *repository.Patients
	appointments *repository.Appointments
	pub          notify.Publisher
	now          func() time.Time
	loc          *time.Location
	log          *zap.Logger
}

type options struct {
	log   *zap.Logger
	now   func() time.Time
	loc   *time.Location
	pub   notify.Publisher
	delay time.Duration
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithLocation(loc *time.Location) Option { return func(o *options) { o.loc = loc } }

func WithPublisher(p notify.Publisher) Option { return func(o *options) { o.pub = p } }

func WithAuthDelay(d time.Duration) Option { return func(o *options) { o.delay = d } }

func New(st *store.Store, opts ...Option) *App {
	o := options{log: zap.NewNop(), now: time.Now, loc: time.Local}
	for _, fn := range opts {
		fn(&o)
	}
	return &App{
		st:       st,
		session:  session.New(st, o.log.Named("session"), session.WithDelay(o.delay)),
		patients: repository.NewPatients(st, o.log.Named("patients")),
		appointments: repository.NewAppointments(st, o.log.Named("appointments"),
			repository.WithClock(o.now), repository.WithLocation(o.loc)),
		pub: notify.NewLogged(o.pub, o.log),
		now: o.now,
		loc: o.loc,
		log: o.log,
	}
}

// Bootstrap seeds missing collections, loads both caches and restores the
// persisted session.
func (a *App) Bootstrap(ctx context.Context, seed store.Seed) error {
	if err := a.st.InitializeOnce(ctx, seed); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	if err := a.patients.Refresh(ctx); err != nil {
		return err
	}
	if err := a.appointments.Refresh(ctx); err != nil {
		return err
	}
	return a.session.Rehydrate(ctx)
}

func (a *App) Session() *session.Manager { return a.session }

func (a *App) Patients() *repository.Patients { return a.patients }

func (a *App) Appointments() *repository.Appointments { return a.appointments }

func (a *App) Location() *time.Location { return a.loc }

func (a *App) Now() time.Time { return a.now() }

func (a *App) CreatePatient(ctx context.Context, p model.Patient) (model.Patient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.patients.Add(ctx, p)
}

func (a *App) UpdatePatient(ctx context.Context, id string, patch model.PatientPatch) (model.Patient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.patients.Update(ctx, id, patch)
}

// DeletePatient removes the patient together with their appointments. If
// the patient write fails the removed appointments are put back.
func (a *App) DeletePatient(ctx context.Context, id string) error {
	var events []notify.Event
	defer func() { a.publish(ctx, events...) }()
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.patients.GetByID(id); err != nil {
		return err
	}
	removed, err := a.appointments.DeleteByPatient(ctx, id)
	if err != nil {
		return err
	}
	if err := a.patients.Delete(ctx, id); err != nil {
		if rerr := a.appointments.Restore(ctx, removed); rerr != nil {
			a.log.Error("restore appointments after failed patient delete",
				zap.String("patient_id", id), zap.Int("count", len(removed)), zap.Error(rerr))
			return errors.Join(err, rerr)
		}
		return err
	}
	a.log.Info("patient removed with appointments", zap.String("patient_id", id), zap.Int("appointments", len(removed)))
	events = append(events, notify.Event{Kind: notify.PatientDeleted, PatientID: id})
	return nil
}

func (a *App) CreateAppointment(ctx context.Context, in model.Appointment) (model.Appointment, error) {
	var events []notify.Event
	defer func() { a.publish(ctx, events...) }()
	a.mu.Lock()
	defer a.mu.Unlock()
	out, err := a.appointments.Add(ctx, in)
	if err != nil {
		return out, err
	}
	events = append(events, notify.Event{Kind: notify.AppointmentCreated, AppointmentID: out.ID, PatientID: out.PatientID})
	return out, nil
}

// UpdateAppointment schedules any follow-up the patch asks for, then
// applies the patch. The follow-up is nil when none was created.
func (a *App) UpdateAppointment(ctx context.Context, id string, patch model.AppointmentPatch) (model.Appointment, *model.Appointment, error) {
	var events []notify.Event
	defer func() { a.publish(ctx, events...) }()
	a.mu.Lock()
	defer a.mu.Unlock()

	patch, followUp, err := a.appointments.ScheduleFollowUp(ctx, id, patch)
	if err != nil {
		return model.Appointment{}, nil, err
	}
	updated, err := a.appointments.ApplyPatch(ctx, id, patch)
	if err != nil {
		// drop the follow-up so a retry does not schedule a second one
		if followUp != nil {
			if derr := a.appointments.Delete(ctx, followUp.ID); derr != nil {
				err = errors.Join(err, fmt.Errorf("remove follow-up %s: %w", followUp.ID, derr))
			}
		}
		return model.Appointment{}, nil, err
	}

	if followUp != nil {
		events = append(events, notify.Event{Kind: notify.FollowUpScheduled, AppointmentID: followUp.ID, PatientID: followUp.PatientID, PreviousID: id})
	}
	events = append(events, notify.Event{Kind: notify.AppointmentUpdated, AppointmentID: id, PatientID: updated.PatientID})
	return updated, followUp, nil
}

func (a *App) DeleteAppointment(ctx context.Context, id string) error {
	var events []notify.Event
	defer func() { a.publish(ctx, events...) }()
	a.mu.Lock()
	defer a.mu.Unlock()
	appt, err := a.appointments.GetByID(id)
	if err != nil {
		return err
	}
	if err := a.appointments.Delete(ctx, id); err != nil {
		return err
	}
	events = append(events, notify.Event{Kind: notify.AppointmentDeleted, AppointmentID: id, PatientID: appt.PatientID})
	return nil
}

func (a *App) AddAttachment(ctx context.Context, id string, att model.Attachment) (model.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appointments.AddAttachment(ctx, id, att)
}

func (a *App) RemoveAttachment(ctx context.Context, id string, index int) (model.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appointments.RemoveAttachment(ctx, id, index)
}

// Calendar projects every appointment, earliest first, onto the view that
// contains ref.
func (a *App) Calendar(ref time.Time, view calendar.View) calendar.Projection {
	all := a.appointments.List()
	sortByDate(all)
	return calendar.Project(all, ref.In(a.loc), view)
}

type AdminDashboard struct {
	TotalPatients     int                 `json:"totalPatients"`
	TotalAppointments int                 `json:"totalAppointments"`
	Today             []model.Appointment `json:"todayAppointments"`
	Upcoming          []model.Appointment `json:"upcomingAppointments"`
	CompletedCount    int                 `json:"completedCount"`
	TotalRevenue      float64             `json:"totalRevenue"`
}

func (a *App) AdminDashboard() AdminDashboard {
	all := a.appointments.List()
	completed, revenue := completedStats(all)
	return AdminDashboard{
		TotalPatients:     len(a.patients.List()),
		TotalAppointments: len(all),
		Today:             a.appointments.Today(),
		Upcoming:          a.appointments.Upcoming(repository.DefaultUpcoming),
		CompletedCount:    completed,
		TotalRevenue:      revenue,
	}
}

type PatientDashboard struct {
	Patient          model.Patient       `json:"patient"`
	Upcoming         []model.Appointment `json:"upcomingAppointments"`
	CompletedCount   int                 `json:"completedCount"`
	TotalSpent       float64             `json:"totalSpent"`
	RecentTreatments []model.Appointment `json:"recentTreatments"`
	History          []model.Appointment `json:"history"`
}

func (a *App) PatientDashboard(patientID string) (PatientDashboard, error) {
	p, err := a.patients.GetByID(patientID)
	if err != nil {
		return PatientDashboard{}, err
	}
	mine := a.appointments.ByPatient(patientID)
	now := a.now()

	upcoming := []model.Appointment{}
	done := []model.Appointment{}
	for _, ap := range mine {
		if ap.AppointmentDate.After(now) {
			upcoming = append(upcoming, ap)
		}
		if ap.Status == model.StatusCompleted {
			done = append(done, ap)
		}
	}
	sortByDate(upcoming)

	// last few completed in stored order, newest entry first
	recent := []model.Appointment{}
	for i := len(done) - 1; i >= 0 && len(recent) < recentTreatments; i-- {
		recent = append(recent, done[i])
	}

	completed, spent := completedStats(mine)
	history := append([]model.Appointment{}, mine...)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].AppointmentDate.After(history[j].AppointmentDate)
	})
	return PatientDashboard{
		Patient:          p,
		Upcoming:         upcoming,
		CompletedCount:   completed,
		TotalSpent:       spent,
		RecentTreatments: recent,
		History:          history,
	}, nil
}

func completedStats(as []model.Appointment) (int, float64) {
	n, sum := 0, 0.0
	for _, a := range as {
		if a.Status == model.StatusCompleted {
			n++
			sum += a.Cost
		}
	}
	return n, sum
}

func sortByDate(as []model.Appointment) {
	sort.SliceStable(as, func(i, j int) bool {
		return as[i].AppointmentDate.Before(as[j].AppointmentDate)
	})
}

// publish sends events in order. Mutations defer it ahead of their unlock
// so a slow broker never holds the app lock.
func (a *App) publish(ctx context.Context, events ...notify.Event) {
	for _, e := range events {
		e.At = a.now().UTC()
		_ = a.pub.Publish(ctx, e)
	}
}
