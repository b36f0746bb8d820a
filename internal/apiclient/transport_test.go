package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/storage"
)

// tokenServer accepts "Bearer fresh" and refreshes "rt-1" into "fresh".
type tokenServer struct {
	refreshes  atomic.Int32
	refreshErr bool
	always401  bool
	mu         sync.Mutex
	bodies     []string
}

func (s *tokenServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshes.Add(1)
		var req refreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if s.refreshErr || req.RefreshToken != "rt-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh"})
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if s.always401 || r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.bodies = append(s.bodies, body["msg"])
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": body["msg"]})
	})
	return mux
}

func newSession(t *testing.T, access, refresh string) storage.Store {
	t.Helper()
	st := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, storage.KeyAccessToken, access))
	if refresh != "" {
		require.NoError(t, st.Set(ctx, storage.KeyRefreshToken, refresh))
	}
	require.NoError(t, st.Set(ctx, storage.KeyUser, `{"id":1,"name":"a","email":"a@x"}`))
	return st
}

func TestAuthenticatedClient_RefreshesAndReplays(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "rt-1")
	expired := 0
	c := NewAuthenticated(srv.URL, st, New(srv.URL), WithSessionExpiredHandler(func() { expired++ }))

	var out map[string]string
	err := c.Post(context.Background(), "/echo", map[string]string{"msg": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["msg"])
	assert.Equal(t, int32(1), ts.refreshes.Load())
	assert.Equal(t, []string{"hello"}, ts.bodies, "replayed request carries the original body")
	assert.Zero(t, expired)

	token, ok, err := st.Get(context.Background(), storage.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", token)
}

func TestAuthenticatedClient_SecondUnauthorizedIsTerminal(t *testing.T) {
	ts := &tokenServer{always401: true}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "rt-1")
	expired := 0
	c := NewAuthenticated(srv.URL, st, New(srv.URL), WithSessionExpiredHandler(func() { expired++ }))

	err := c.Get(context.Background(), "/echo", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), ts.refreshes.Load())
	assert.Equal(t, 1, expired)
	assertCleared(t, st)
}

func TestAuthenticatedClient_RefreshFailureClearsSession(t *testing.T) {
	ts := &tokenServer{refreshErr: true}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "rt-1")
	expired := 0
	c := NewAuthenticated(srv.URL, st, New(srv.URL), WithSessionExpiredHandler(func() { expired++ }))

	err := c.Get(context.Background(), "/echo", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, expired)
	assertCleared(t, st)
}

func TestAuthenticatedClient_MissingRefreshToken(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "")
	c := NewAuthenticated(srv.URL, st, New(srv.URL))

	err := c.Get(context.Background(), "/echo", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, ts.refreshes.Load())
	assertCleared(t, st)
}

func TestAuthenticatedClient_WithoutRefresh(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "rt-1")
	c := NewAuthenticated(srv.URL, st, New(srv.URL))

	err := c.Get(WithoutRefresh(context.Background()), "/echo", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, ts.refreshes.Load())
}

func TestAuthenticatedClient_RefreshEndpointNeverRefreshes(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "rt-1")
	c := NewAuthenticated(srv.URL, st, New(srv.URL))

	err := c.Post(context.Background(), "/auth/refresh", refreshRequest{RefreshToken: "bogus"}, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), ts.refreshes.Load(), "only the original call reaches the refresh endpoint")
}

func TestAuthenticatedClient_SharedRefresh(t *testing.T) {
	ts := &tokenServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	st := newSession(t, "stale", "rt-1")
	c := NewAuthenticated(srv.URL, st, New(srv.URL), WithSharedRefresh())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Post(context.Background(), "/echo", map[string]string{"msg": "x"}, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, ts.refreshes.Load(), int32(8))
	assert.GreaterOrEqual(t, ts.refreshes.Load(), int32(1))
}

// slowRefreshServer answers /auth/refresh only once release is closed.
func slowRefreshServer(t *testing.T, release <-chan struct{}) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		select {
		case <-release:
			_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": "fresh"})
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func TestAuthenticatedClient_CallerTimeoutKeepsSession(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	srv, _ := slowRefreshServer(t, release)

	st := newSession(t, "stale", "rt-1")
	expired := 0
	c := NewAuthenticated(srv.URL, st, New(srv.URL), WithSessionExpiredHandler(func() { expired++ }))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := c.Get(ctx, "/echo", nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, expired)

	for _, k := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser} {
		_, ok, err := st.Get(context.Background(), k)
		require.NoError(t, err)
		assert.True(t, ok, "key %s should survive a cancelled caller", k)
	}
}

func TestAuthenticatedClient_SharedRefreshSurvivesCancelledWaiter(t *testing.T) {
	release := make(chan struct{})
	srv, refreshes := slowRefreshServer(t, release)

	st := newSession(t, "stale", "rt-1")
	expired := 0
	c := NewAuthenticated(srv.URL, st, New(srv.URL), WithSharedRefresh(),
		WithSessionExpiredHandler(func() { expired++ }))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Get(ctx, "/echo", nil, nil) }()
	require.Eventually(t, func() bool { return refreshes.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	secondErr := make(chan error, 1)
	go func() { secondErr <- c.Get(context.Background(), "/echo", nil, nil) }()

	cancel()
	err := <-firstErr
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSessionExpired)

	close(release)
	require.NoError(t, <-secondErr)
	assert.Zero(t, expired)

	token, ok, err := st.Get(context.Background(), storage.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", token)
}

func TestAuthenticatedClient_NoTokenSendsNoHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewAuthenticated(srv.URL, storage.NewMemory(), New(srv.URL))
	require.NoError(t, c.Delete(context.Background(), "/thing", nil))
	assert.Empty(t, got)
}

func TestAPIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/with-message":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Insufficient cash"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Get(context.Background(), "/with-message", nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Insufficient cash", ErrorMessage(err, "fallback"))

	err = c.Get(context.Background(), "/other", nil, nil)
	assert.Equal(t, "request failed with status 502", err.Error())
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, "fallback", ErrorMessage(errors.New("dial tcp"), "fallback"))
}

func assertCleared(t *testing.T, st storage.Store) {
	t.Helper()
	for _, k := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser} {
		_, ok, err := st.Get(context.Background(), k)
		require.NoError(t, err)
		assert.False(t, ok, "key %s should be cleared", k)
	}
}
