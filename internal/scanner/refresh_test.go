package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_FreshData(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	r := NewRefresher(5 * time.Minute)

	d, ok := r.Next(&Response{}, now.Add(-time.Minute), now)
	require.True(t, ok)
	assert.Equal(t, 4*time.Minute+refetchSlack, d)

	asOf := now.Add(-2 * time.Minute)
	d, ok = r.Next(&Response{AsOf: &asOf}, now, now)
	require.True(t, ok)
	assert.Equal(t, 3*time.Minute+refetchSlack, d)

	fresh := now.Add(30 * time.Second)
	d, ok = r.Next(&Response{AsOf: &asOf, Cache: &CacheInfo{FreshUntil: &fresh}}, now, now)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second+refetchSlack, d)

	past := now.Add(-time.Second)
	d, ok = r.Next(&Response{Cache: &CacheInfo{FreshUntil: &past}}, now, now)
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestRefresher_StaleRevalidation(t *testing.T) {
	start := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	r := NewRefresher(5 * time.Minute)
	stale := &Response{Cache: &CacheInfo{IsStale: true, WillRevalidate: true}}

	d, ok := r.Next(stale, start, start)
	require.True(t, ok)
	assert.Equal(t, staleRefetchEvery, d)

	d, ok = r.Next(stale, start, start.Add(50*time.Second))
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, d)

	_, ok = r.Next(stale, start, start.Add(61*time.Second))
	assert.False(t, ok)
	assert.True(t, r.GaveUp())

	_, ok = r.Next(stale, start, start.Add(62*time.Second))
	assert.False(t, ok, "stays given up while stale")

	now := start.Add(2 * time.Minute)
	_, ok = r.Next(&Response{}, now, now)
	assert.True(t, ok)
	assert.False(t, r.GaveUp(), "fresh data resets the give-up state")

	_, ok = r.Next(&Response{Cache: &CacheInfo{IsStale: true}}, now, now)
	assert.False(t, ok, "stale data the server will not revalidate is not polled")
}

func TestRefresher_FollowStopsOnCancel(t *testing.T) {
	r := NewRefresher(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var emitted atomic.Int32
	fetch := func(context.Context) (*Response, error) {
		return nil, errors.New("backend down")
	}
	emit := func(_ *Response, err error) {
		assert.Error(t, err)
		if emitted.Add(1) == 3 {
			cancel()
		}
	}

	err := r.Follow(ctx, fetch, emit, logger)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), emitted.Load())
}
