// Package storage holds the key/value persistence used for the client
// session, the OAuth state token and user preferences.
package storage

import (
	"context"
	"sync"
)

// Durable keys.
const (
	KeyAccessToken       = "accessToken"
	KeyRefreshToken      = "refreshToken"
	KeyUser              = "user"
	KeyToastSoundEnabled = "wt:toastSoundEnabled"
)

// KeyOAuthState lives in session-scoped storage only.
const KeyOAuthState = "oauth_state"

// Store is a string key/value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Memory is a Store that lives as long as the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.values, k)
	}
	m.mu.Unlock()
	return nil
}
