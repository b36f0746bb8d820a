// Package auth holds the client-side session: tokens and user persisted in
// durable storage, the Google OAuth CSRF guard and the loopback server that
// receives the OAuth redirect.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/storage"
)

// Backend is the subset of the REST API the session manager talks to.
type Backend interface {
	GoogleCallback(ctx context.Context, code, redirectURI string) (*domain.AuthResponse, error)
	DemoLogin(ctx context.Context) (*domain.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}

// UserAPI reads and replaces user records.
type UserAPI interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) (*domain.User, error)
}

type Session struct {
	AccessToken     string
	RefreshToken    string
	User            *domain.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

type Manager struct {
	mu      sync.RWMutex
	session Session
	store   storage.Store
	backend Backend
	logger  *slog.Logger
}

func NewManager(store storage.Store, backend Backend, logger *slog.Logger) *Manager {
	return &Manager{store: store, backend: backend, logger: logger}
}

// Read returns a snapshot of the session.
func (m *Manager) Read() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// SetAuth persists the session and marks it authenticated.
func (m *Manager) SetAuth(ctx context.Context, accessToken, refreshToken string, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyRefreshToken, refreshToken); err != nil {
		m.discardPartial(ctx)
		return fmt.Errorf("store refresh token: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyUser, string(data)); err != nil {
		m.discardPartial(ctx)
		return fmt.Errorf("store user: %w", err)
	}

	m.mu.Lock()
	m.session = Session{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		User:            &user,
		IsAuthenticated: true,
	}
	m.mu.Unlock()
	return nil
}

// ClearAuth removes the persisted session and resets the in-memory state.
func (m *Manager) ClearAuth(ctx context.Context) error {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// discardPartial removes whatever a failed SetAuth managed to write, so
// storage never holds half a session.
func (m *Manager) discardPartial(ctx context.Context) {
	if err := m.store.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser); err != nil {
		m.logger.Error("failed to discard partial session", "err", err)
	}
}

// Expired resets the in-memory session after the HTTP client has already
// cleared storage because the refresh token was rejected.
func (m *Manager) Expired() {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()
}

// Restore loads a previously persisted session without touching the
// network. A stored user that does not decode clears all three keys.
func (m *Manager) Restore(ctx context.Context) error {
	access, okA, err := m.store.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	refresh, okR, err := m.store.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("read refresh token: %w", err)
	}
	raw, okU, err := m.store.Get(ctx, storage.KeyUser)
	if err != nil {
		return fmt.Errorf("read user: %w", err)
	}
	if !okA || !okR || !okU || access == "" || refresh == "" || raw == "" {
		return nil
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn("stored user is corrupt, clearing session", "err", err)
		return m.ClearAuth(ctx)
	}

	m.mu.Lock()
	m.session = Session{
		AccessToken:     access,
		RefreshToken:    refresh,
		User:            &user,
		IsAuthenticated: true,
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) LoginWithCode(ctx context.Context, code, redirectURI string) error {
	return m.login(ctx, "Login failed", func() (*domain.AuthResponse, error) {
		return m.backend.GoogleCallback(ctx, code, redirectURI)
	})
}

func (m *Manager) LoginAsDemo(ctx context.Context) error {
	return m.login(ctx, "Demo login failed", func() (*domain.AuthResponse, error) {
		return m.backend.DemoLogin(ctx)
	})
}

func (m *Manager) login(ctx context.Context, fallback string, exchange func() (*domain.AuthResponse, error)) error {
	m.mu.Lock()
	m.session.IsLoading = true
	m.session.Error = ""
	m.mu.Unlock()

	resp, err := exchange()
	if err == nil {
		err = m.SetAuth(ctx, resp.AccessToken, resp.RefreshToken, resp.User)
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		m.mu.Lock()
		m.session.IsLoading = false
		m.session.Error = msg
		m.mu.Unlock()
		return err
	}
	return nil
}

// Logout invalidates the refresh token on the server when one is held and
// always clears the local session. Server failures are only logged.
func (m *Manager) Logout(ctx context.Context) error {
	refresh := m.Read().RefreshToken
	if refresh == "" {
		if stored, ok, err := m.store.Get(ctx, storage.KeyRefreshToken); err == nil && ok {
			refresh = stored
		}
	}
	if refresh != "" {
		if err := m.backend.Logout(ctx, refresh); err != nil {
			m.logger.Warn("logout request failed", "err", err)
		}
	}
	return m.ClearAuth(ctx)
}

// UpdateUser replaces the session's user in memory and in storage.
func (m *Manager) UpdateUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyUser, string(data)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	m.mu.Lock()
	m.session.User = &user
	m.mu.Unlock()
	return nil
}

var ErrNotAuthenticated = errors.New("not signed in")

// RenameUser reads the current user record, changes its name and writes
// it back, then updates the session.
func (m *Manager) RenameUser(ctx context.Context, users UserAPI, name string) (*domain.User, error) {
	current := m.Read().User
	if current == nil {
		return nil, ErrNotAuthenticated
	}
	u, err := users.GetUser(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Name = name
	updated, err := users.UpdateUser(ctx, *u)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := m.UpdateUser(ctx, *updated); err != nil {
		return nil, err
	}
	return updated, nil
}
