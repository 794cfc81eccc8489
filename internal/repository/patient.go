// Package repository keeps the cached patient and appointment collections
// of a clinic silo and writes every change through to the store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/store"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrSaveFailed = errors.New("failed to save, try again")
)

type Patients struct {
	mu    sync.Mutex
	st    *store.Store
	items []model.Patient
	now   func() time.Time
	log   *zap.Logger
}

func NewPatients(st *store.Store, log *zap.Logger) *Patients {
	if log == nil {
		log = zap.NewNop()
	}
	return &Patients{st: st, now: time.Now, log: log}
}

// Refresh reloads the cache from the store.
func (r *Patients) Refresh(ctx context.Context) error {
	items, err := r.st.Patients(ctx)
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return nil
}

func (r *Patients) List() []model.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Patient{}, r.items...)
}

func (r *Patients) GetByID(id string) (model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Patient{}, fmt.Errorf("patient %s: %w", id, ErrNotFound)
}

// Search matches name and email case-insensitively and contact as a plain
// substring. An empty query returns everything.
func (r *Patients) Search(query string) []model.Patient {
	q := strings.ToLower(query)
	out := []model.Patient{}
	for _, p := range r.List() {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Email), q) ||
			strings.Contains(p.Contact, query) {
			out = append(out, p)
		}
	}
	return out
}

// Add assigns the id and creation time; any supplied values are replaced.
func (r *Patients) Add(ctx context.Context, p model.Patient) (model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = store.GenerateID()
	p.CreatedAt = r.now().UTC()
	next := append(append([]model.Patient{}, r.items...), p)
	if err := r.commit(ctx, next); err != nil {
		return model.Patient{}, err
	}
	r.log.Info("patient added", zap.String("patient_id", p.ID))
	return p, nil
}

func (r *Patients) Update(ctx context.Context, id string, patch model.PatientPatch) (model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.index(id)
	if idx < 0 {
		return model.Patient{}, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	next := append([]model.Patient{}, r.items...)
	next[idx] = next[idx].Apply(patch)
	if err := r.commit(ctx, next); err != nil {
		return model.Patient{}, err
	}
	return next[idx], nil
}

// Delete removes only the patient record. Appointments are untouched.
func (r *Patients) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.index(id)
	if idx < 0 {
		return fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	next := make([]model.Patient, 0, len(r.items)-1)
	next = append(next, r.items[:idx]...)
	next = append(next, r.items[idx+1:]...)
	if err := r.commit(ctx, next); err != nil {
		return err
	}
	r.log.Info("patient deleted", zap.String("patient_id", id))
	return nil
}

func (r *Patients) index(id string) int {
	for i, p := range r.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// commit persists next and swaps it in. Callers hold mu.
func (r *Patients) commit(ctx context.Context, next []model.Patient) error {
	if err := r.st.SetPatients(ctx, next); err != nil {
		r.log.Error("persist patients", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	r.items = next
	return nil
}
