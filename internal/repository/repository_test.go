package repository_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dental-clinic-admin/internal/store"
)

// flakyKV fails every Set while broken is set.
type flakyKV struct {
	store.KV
	broken atomic.Bool
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if f.broken.Load() {
		return errors.New("quota exceeded")
	}
	return f.KV.Set(ctx, key, value)
}

func newStore(t *testing.T) (*store.Store, *flakyKV) {
	t.Helper()
	kv := &flakyKV{KV: store.NewMemoryKV()}
	return store.New(kv, "test", nil), kv
}

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
