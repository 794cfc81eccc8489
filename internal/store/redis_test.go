package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/store"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *store.RedisKV) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, store.NewRedisKV(c)
}

func TestRedisKV_GetMiss(t *testing.T) {
	_, kv := setupRedis(t)
	_, err := kv.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrMiss)
}

func TestRedisKV_SetGetDel(t *testing.T) {
	mr, kv := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "dental_users", `[]`))
	v, err := kv.Get(ctx, "dental_users")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
	assert.Zero(t, mr.TTL("dental_users"))

	require.NoError(t, kv.Del(ctx, "dental_users"))
	assert.False(t, mr.Exists("dental_users"))
}

func TestRedisKV_BacksStore(t *testing.T) {
	mr, kv := setupRedis(t)
	ctx := context.Background()
	st := store.New(kv, "dental", nil)

	require.NoError(t, st.InitializeOnce(ctx, store.Seed{
		Patients: []model.Patient{{ID: "p1", Name: "John Doe", Contact: "1234567890"}},
	}))
	assert.True(t, mr.Exists("dental_patients"))

	patients, err := st.Patients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "John Doe", patients[0].Name)
}

func TestRedisKV_UnavailableBackend(t *testing.T) {
	mr, kv := setupRedis(t)
	mr.Close()

	st := store.New(kv, "dental", nil)
	err := st.SetUsers(context.Background(), []model.User{{ID: "1"}})
	assert.ErrorIs(t, err, store.ErrWrite)
}
