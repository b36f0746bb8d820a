package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, KeyAccessToken, "a"))
	require.NoError(t, m.Set(ctx, KeyRefreshToken, "r"))

	v, ok, err := m.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	require.NoError(t, m.Delete(ctx, KeyAccessToken, KeyRefreshToken, "missing"))
	_, ok, _ = m.Get(ctx, KeyRefreshToken)
	assert.False(t, ok)
}
