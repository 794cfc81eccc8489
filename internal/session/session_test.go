package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/seed"
	"dental-clinic-admin/internal/session"
	"dental-clinic-admin/internal/store"
)

func setup(t *testing.T) (*store.Store, *session.Manager) {
	t.Helper()
	st := store.New(store.NewMemoryKV(), "dental", zap.NewNop())
	s, err := seed.Hashed()
	require.NoError(t, err)
	require.NoError(t, st.InitializeOnce(context.Background(), s))
	return st, session.New(st, zap.NewNop())
}

func TestLoginSuccessPersistsSession(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	res, err := m.Login(ctx, "admin@entnt.in", "admin123")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.True(t, m.IsAdmin())
	assert.False(t, m.IsPatient())

	persisted, err := st.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "1", persisted.ID)
	assert.Equal(t, model.RoleAdmin, persisted.Role)
}

func TestLoginFailures(t *testing.T) {
	_, m := setup(t)

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "admin@entnt.in", "nope"},
		{"unknown email", "nobody@entnt.in", "admin123"},
		{"email case differs", "ADMIN@entnt.in", "admin123"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Login(context.Background(), tt.email, tt.password)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, "Invalid email or password", res.Error)
			assert.Nil(t, m.Current())
		})
	}
}

func TestPatientSessionCarriesPatientID(t *testing.T) {
	_, m := setup(t)
	res, err := m.Login(context.Background(), "jane@entnt.in", "patient123")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, m.IsPatient())
	assert.Equal(t, "p2", m.Current().PatientID)
}

func TestLogoutClearsSession(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()
	_, err := m.Login(ctx, "john@entnt.in", "patient123")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.Authenticated())
	assert.False(t, m.IsPatient())

	persisted, err := st.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestRehydrateRestoresSession(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()
	_, err := m.Login(ctx, "john@entnt.in", "patient123")
	require.NoError(t, err)

	// a fresh manager over the same store, as after a restart
	m2 := session.New(st, nil)
	assert.False(t, m2.Authenticated())
	require.NoError(t, m2.Rehydrate(ctx))
	require.True(t, m2.IsPatient())
	assert.Equal(t, "2", m2.Current().ID)
}

func TestPlaintextUserTable(t *testing.T) {
	st := store.New(store.NewMemoryKV(), "dental", nil)
	require.NoError(t, st.InitializeOnce(context.Background(), seed.Initial()))
	m := session.New(st, nil)

	res, err := m.Login(context.Background(), "admin@entnt.in", "admin123")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestDelayHonoursContext(t *testing.T) {
	st, _ := setup(t)
	m := session.New(st, nil, session.WithDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Login(ctx, "admin@entnt.in", "admin123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCurrentReturnsCopy(t *testing.T) {
	_, m := setup(t)
	_, err := m.Login(context.Background(), "admin@entnt.in", "admin123")
	require.NoError(t, err)

	c := m.Current()
	c.Role = model.RolePatient
	assert.True(t, m.IsAdmin())
}
