package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/storage"
)

func TestCallbackServer_RedirectsAndReports(t *testing.T) {
	flow, session := newFlow(okBackend())
	require.NoError(t, session.Set(context.Background(), storage.KeyOAuthState, "xyz"))

	cs, err := NewCallbackServer(flow, testLogger())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=xyz", nil)
	rec := httptest.NewRecorder()
	cs.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, RouteHome, rec.Header().Get("Location"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	route, err := cs.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteHome, route)
	assert.True(t, flow.manager.Read().IsAuthenticated)
}

func TestCallbackServer_BadStateGoesToLogin(t *testing.T) {
	flow, _ := newFlow(okBackend())
	cs, err := NewCallbackServer(flow, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	cs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=forged", nil))
	assert.Equal(t, RouteLogin, rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	cs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "did not complete")
}

func TestCallbackServer_WaitHonoursContext(t *testing.T) {
	flow, _ := newFlow(okBackend())
	cs, err := NewCallbackServer(flow, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	route, err := cs.Wait(ctx)
	assert.Equal(t, RouteLogin, route)
	assert.ErrorIs(t, err, context.Canceled)
}
