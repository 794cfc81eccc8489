package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/repository"
)

func samplePatient(name, email, contact string) model.Patient {
	return model.Patient{
		Name:             name,
		Email:            email,
		DOB:              "1990-05-10",
		Contact:          contact,
		Address:          "1 Main St",
		HealthInfo:       "none",
		EmergencyContact: "0000000000",
	}
}

func TestPatientAddThenGet(t *testing.T) {
	st, _ := newStore(t)
	r := repository.NewPatients(st, nil)
	ctx := context.Background()

	in := samplePatient("John Doe", "john@entnt.in", "1234567890")
	got, err := r.Add(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())

	found, err := r.GetByID(got.ID)
	require.NoError(t, err)
	want := in
	want.ID = got.ID
	want.CreatedAt = got.CreatedAt
	assert.Equal(t, want, found)

	// write-through: a fresh repository sees the same record
	r2 := repository.NewPatients(st, nil)
	require.NoError(t, r2.Refresh(ctx))
	assert.Equal(t, []model.Patient{found}, r2.List())
}

func TestPatientUpdateMergesPatch(t *testing.T) {
	st, _ := newStore(t)
	r := repository.NewPatients(st, nil)
	ctx := context.Background()

	p, err := r.Add(ctx, samplePatient("John Doe", "john@entnt.in", "1234567890"))
	require.NoError(t, err)

	got, err := r.Update(ctx, p.ID, model.PatientPatch{Address: ptr("9 Elm Rd")})
	require.NoError(t, err)
	assert.Equal(t, "9 Elm Rd", got.Address)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)

	_, err = r.Update(ctx, "missing", model.PatientPatch{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPatientSearch(t *testing.T) {
	st, _ := newStore(t)
	r := repository.NewPatients(st, nil)
	ctx := context.Background()
	_, err := r.Add(ctx, samplePatient("John Doe", "john@entnt.in", "1234567890"))
	require.NoError(t, err)
	_, err = r.Add(ctx, samplePatient("Jane Smith", "JANE@clinic.org", "2345678901"))
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"john", []string{"John Doe"}},
		{"SMITH", []string{"Jane Smith"}},
		{"jane@CLINIC", []string{"Jane Smith"}},
		{"8901", []string{"Jane Smith"}},
		{"doe", []string{"John Doe"}},
		{"", []string{"John Doe", "Jane Smith"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var names []string
			for _, p := range r.Search(tt.query) {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestPatientDeleteDoesNotCascade(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	patients := repository.NewPatients(st, nil)
	appts := repository.NewAppointments(st, nil, repository.WithClock(clock))

	p, err := patients.Add(ctx, samplePatient("John Doe", "john@entnt.in", "1234567890"))
	require.NoError(t, err)
	_, err = appts.Add(ctx, model.Appointment{PatientID: p.ID, Title: "Checkup", AppointmentDate: fixedNow.Add(24 * time.Hour)})
	require.NoError(t, err)

	require.NoError(t, patients.Delete(ctx, p.ID))
	_, err = patients.GetByID(p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Len(t, appts.ByPatient(p.ID), 1)

	assert.ErrorIs(t, patients.Delete(ctx, p.ID), repository.ErrNotFound)
}

func TestPatientSaveFailureLeavesCache(t *testing.T) {
	st, kv := newStore(t)
	r := repository.NewPatients(st, nil)
	ctx := context.Background()

	p, err := r.Add(ctx, samplePatient("John Doe", "john@entnt.in", "1234567890"))
	require.NoError(t, err)

	kv.broken.Store(true)
	_, err = r.Add(ctx, samplePatient("Jane Smith", "jane@entnt.in", "2345678901"))
	assert.ErrorIs(t, err, repository.ErrSaveFailed)
	_, err = r.Update(ctx, p.ID, model.PatientPatch{Name: ptr("Renamed")})
	assert.ErrorIs(t, err, repository.ErrSaveFailed)
	assert.ErrorIs(t, r.Delete(ctx, p.ID), repository.ErrSaveFailed)

	assert.Equal(t, []model.Patient{p}, r.List())
}
