package store_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/store"
)

type failingKV struct {
	*store.MemoryKV
}

func (f failingKV) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestRoundTripPreservesAppointments(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemoryKV(), "dental", nil)

	next := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	in := []model.Appointment{{
		ID:                  "a2",
		PatientID:           "p1",
		Title:               "Toothache Treatment",
		AppointmentDate:     time.Date(2025, 6, 28, 14, 0, 0, 0, time.UTC),
		Status:              model.StatusCompleted,
		Cost:                250,
		TreatmentNotes:      "Root canal therapy completed",
		NextAppointmentDate: &next,
		Attachments: []model.Attachment{
			{Name: "xray_report.pdf", Type: "application/pdf", Size: 5, Data: "data:application/pdf;base64,aGVsbG8="},
			{Name: "scan.png", Type: "image/png", Size: 3, Data: "data:image/png;base64,YWJj"},
		},
		PreviousAppointmentID: "a1",
		CreatedAt:             time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC),
	}}

	require.NoError(t, st.SetAppointments(ctx, in))
	out, err := st.Appointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMissingCollectionIsEmpty(t *testing.T) {
	st := store.New(store.NewMemoryKV(), "dental", nil)

	patients, err := st.Patients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, patients)

	sess, err := st.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestUndecodableCollectionIsTreatedAsMissing(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	st := store.New(kv, "dental", nil)
	require.NoError(t, kv.Set(ctx, "dental_patients", "{not json"))

	patients, err := st.Patients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestKeysUsePrefix(t *testing.T) {
	st := store.New(store.NewMemoryKV(), "clinic42", nil)
	assert.Equal(t, "clinic42_users", st.Key(store.Users))
	assert.Equal(t, "clinic42_current_user", st.Key(store.CurrentUser))
}

func TestInitializeOnceSkipsPresentKeys(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemoryKV(), "dental", nil)

	existing := []model.Patient{{ID: "keep", Name: "Existing"}}
	require.NoError(t, st.SetPatients(ctx, existing))

	err := st.InitializeOnce(ctx, store.Seed{
		Users:    []model.User{{ID: "1", Email: "admin@entnt.in", Role: model.RoleAdmin}},
		Patients: []model.Patient{{ID: "p1", Name: "John Doe"}},
	})
	require.NoError(t, err)

	patients, err := st.Patients(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing, patients)

	users, err := st.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@entnt.in", users[0].Email)

	// appointments were not part of the seed
	appts, err := st.Appointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestWriteFailureIsReported(t *testing.T) {
	st := store.New(failingKV{store.NewMemoryKV()}, "dental", nil)

	err := st.SetPatients(context.Background(), []model.Patient{{ID: "p1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrWrite)
}

func TestCurrentUserLifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.NewMemoryKV(), "dental", nil)

	sess := model.Session{ID: "2", Email: "john@entnt.in", Role: model.RolePatient, Name: "John Doe", PatientID: "p1"}
	require.NoError(t, st.SetCurrentUser(ctx, sess))

	got, err := st.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess, *got)

	require.NoError(t, st.ClearCurrentUser(ctx))
	got, err = st.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	st := store.New(kv, "dental", nil)
	require.NoError(t, st.SetUsers(ctx, []model.User{{ID: "1"}}))
	require.NoError(t, st.SetPatients(ctx, []model.Patient{{ID: "p1"}}))

	require.NoError(t, st.ClearAll(ctx))

	_, err := kv.Get(ctx, "dental_users")
	assert.ErrorIs(t, err, store.ErrMiss)
	_, err = kv.Get(ctx, "dental_patients")
	assert.ErrorIs(t, err, store.ErrMiss)
}

func TestGenerateID(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{13}[0-9a-z]{9}$`)
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := store.GenerateID()
		require.Regexp(t, re, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
