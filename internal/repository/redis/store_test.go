package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, ok, err := s.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "accessToken", "tok"))
	v, ok, err := s.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	// keys are namespaced
	raw, err := mr.Get("wealthtracker:accessToken")
	require.NoError(t, err)
	assert.Equal(t, "tok", raw)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Delete(ctx, "a", "b", "never-set"))
	require.NoError(t, s.Delete(ctx))

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "b")
	assert.False(t, ok)
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), "not-a-url")
	assert.Error(t, err)
}
