// Package session owns the single authenticated identity of a clinic silo.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dental-clinic-admin/internal/auth"
	"dental-clinic-admin/internal/model"
	"dental-clinic-admin/internal/store"
)

const invalidCredentials = "Invalid email or password"

type LoginResult struct {
	Success bool
	Error   string
	Session *model.Session
}

type Manager struct {
	mu      sync.RWMutex
	st      *store.Store
	current *model.Session
	delay   time.Duration
	log     *zap.Logger
}

type Option func(*Manager)

// WithDelay inserts a pause around login and logout. It only drives
// loading indicators; zero changes nothing.
func WithDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

func New(st *store.Store, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{st: st, log: log}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Rehydrate restores the persisted session, if any.
func (m *Manager) Rehydrate(ctx context.Context) error {
	sess, err := m.st.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate session: %w", err)
	}
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	if sess != nil {
		m.log.Info("session restored", zap.String("user_id", sess.ID), zap.String("role", string(sess.Role)))
	}
	return nil
}

// Login matches email exactly and checks the password. A mismatch is a
// soft failure in the result; err is only set when storage fails.
func (m *Manager) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := m.wait(ctx); err != nil {
		return LoginResult{}, err
	}

	users, err := m.st.Users(ctx)
	if err != nil {
		return LoginResult{}, err
	}

	for _, u := range users {
		if u.Email != email || !auth.CheckPassword(u.Password, password) {
			continue
		}
		sess := u.Session()
		if err := m.st.SetCurrentUser(ctx, sess); err != nil {
			return LoginResult{}, err
		}
		m.mu.Lock()
		m.current = &sess
		m.mu.Unlock()
		m.log.Info("login", zap.String("user_id", sess.ID), zap.String("role", string(sess.Role)))
		return LoginResult{Success: true, Session: &sess}, nil
	}

	m.log.Info("login rejected", zap.String("email", strings.ToLower(email)))
	return LoginResult{Success: false, Error: invalidCredentials}, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := m.st.ClearCurrentUser(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	return nil
}

// Current returns a copy of the session, or nil when unauthenticated.
func (m *Manager) Current() *model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

func (m *Manager) Authenticated() bool { return m.Current() != nil }

func (m *Manager) IsAdmin() bool { return m.hasRole(model.RoleAdmin) }

func (m *Manager) IsPatient() bool { return m.hasRole(model.RolePatient) }

func (m *Manager) hasRole(r model.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil && m.current.Role == r
}

func (m *Manager) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return nil
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
