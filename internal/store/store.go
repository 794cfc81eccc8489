package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dental-clinic-admin/internal/model"
)

type Collection string

const (
	Users        Collection = "users"
	Patients     Collection = "patients"
	Appointments Collection = "appointments"
	CurrentUser  Collection = "current_user"
)

var collections = []Collection{Users, Patients, Appointments, CurrentUser}

// Seed is written by InitializeOnce. Nil fields are skipped.
type Seed struct {
	Users        []model.User
	Patients     []model.Patient
	Appointments []model.Appointment
}

// Store gives typed access to the named collections of one clinic silo.
// Every write replaces the whole collection.
type Store struct {
	kv     KV
	prefix string
	log    *zap.Logger
}

func New(kv KV, prefix string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, prefix: prefix, log: log}
}

func (s *Store) Key(c Collection) string {
	return s.prefix + "_" + string(c)
}

// get decodes the collection into out. A missing key leaves out untouched
// and returns false. Undecodable content is logged and treated as missing.
func (s *Store) get(ctx context.Context, c Collection, out any) (bool, error) {
	raw, err := s.kv.Get(ctx, s.Key(c))
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", c, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warn("discarding undecodable collection", zap.String("collection", string(c)), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, c Collection, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrWrite, c, err)
	}
	if err := s.kv.Set(ctx, s.Key(c), string(b)); err != nil {
		s.log.Error("collection write failed", zap.String("collection", string(c)), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrWrite, c, err)
	}
	return nil
}

func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	var out []model.User
	_, err := s.get(ctx, Users, &out)
	return out, err
}

func (s *Store) SetUsers(ctx context.Context, users []model.User) error {
	return s.set(ctx, Users, nonNil(users))
}

func (s *Store) Patients(ctx context.Context) ([]model.Patient, error) {
	var out []model.Patient
	_, err := s.get(ctx, Patients, &out)
	return out, err
}

func (s *Store) SetPatients(ctx context.Context, patients []model.Patient) error {
	return s.set(ctx, Patients, nonNil(patients))
}

func (s *Store) Appointments(ctx context.Context) ([]model.Appointment, error) {
	var out []model.Appointment
	_, err := s.get(ctx, Appointments, &out)
	return out, err
}

func (s *Store) SetAppointments(ctx context.Context, appointments []model.Appointment) error {
	return s.set(ctx, Appointments, nonNil(appointments))
}

// CurrentUser returns nil when nobody is logged in.
func (s *Store) CurrentUser(ctx context.Context) (*model.Session, error) {
	var sess model.Session
	ok, err := s.get(ctx, CurrentUser, &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) SetCurrentUser(ctx context.Context, sess model.Session) error {
	return s.set(ctx, CurrentUser, sess)
}

func (s *Store) ClearCurrentUser(ctx context.Context) error {
	if err := s.kv.Del(ctx, s.Key(CurrentUser)); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrWrite, CurrentUser, err)
	}
	return nil
}

// InitializeOnce writes each seeded collection only if its key is absent.
func (s *Store) InitializeOnce(ctx context.Context, seed Seed) error {
	write := func(c Collection, v any) error {
		_, err := s.kv.Get(ctx, s.Key(c))
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrMiss) {
			return fmt.Errorf("probe %s: %w", c, err)
		}
		s.log.Info("seeding collection", zap.String("collection", string(c)))
		return s.set(ctx, c, v)
	}
	if seed.Users != nil {
		if err := write(Users, seed.Users); err != nil {
			return err
		}
	}
	if seed.Patients != nil {
		if err := write(Patients, seed.Patients); err != nil {
			return err
		}
	}
	if seed.Appointments != nil {
		if err := write(Appointments, seed.Appointments); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll removes every collection of this silo.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, c := range collections {
		if err := s.kv.Del(ctx, s.Key(c)); err != nil {
			return fmt.Errorf("%w: clear %s: %v", ErrWrite, c, err)
		}
	}
	return nil
}

// GenerateID returns a millisecond timestamp followed by nine random
// lowercase alphanumerics.
func GenerateID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ts + suffix[:9]
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
