package trading

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	txCalls  int
	ordCalls int
	txs      []domain.Transaction
	orders   []domain.Order
	fail     bool
	pageSize int
}

func (f *fakeSource) Transactions(_ context.Context, _ int64, _ int, pageSize int) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls++
	f.pageSize = pageSize
	if f.fail {
		return nil, assert.AnError
	}
	return append([]domain.Transaction(nil), f.txs...), nil
}

func (f *fakeSource) OpenOrders(context.Context, int64) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ordCalls++
	if f.fail {
		return nil, assert.AnError
	}
	return append([]domain.Order(nil), f.orders...), nil
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txCalls, f.ordCalls
}

func (f *fakeSource) set(fn func(*fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestPollerInvalidateRefetches(t *testing.T) {
	src := &fakeSource{txs: []domain.Transaction{tx(1, domain.TxPending)}}
	toaster := &recordingToaster{}
	rec := NewReconciler(toaster, nil)
	p := NewPoller(src, rec, 3, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		txCalls, ordCalls := src.calls()
		return txCalls == 1 && ordCalls == 1
	}, time.Second, 5*time.Millisecond)

	src.set(func(f *fakeSource) { f.txs = []domain.Transaction{tx(1, domain.TxExecuted)} })
	p.Invalidate()

	require.Eventually(t, func() bool {
		txCalls, ordCalls := src.calls()
		return txCalls == 2 && ordCalls == 2
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(toaster.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Order filled", toaster.all()[0].Title)
	assert.Equal(t, notifierPageSize, src.pageSize)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerFailureKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{txs: []domain.Transaction{tx(1, domain.TxPending)}}
	toaster := &recordingToaster{}
	rec := NewReconciler(toaster, nil)
	p := NewPoller(src, rec, 3, 10*time.Millisecond, discardLogger())

	var seen sync.Map
	p.OnTransactions(func(txs []domain.Transaction) { seen.Store("tx", len(txs)) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { _, ok := seen.Load("tx"); return ok }, time.Second, 5*time.Millisecond)

	src.set(func(f *fakeSource) { f.fail = true })
	require.Eventually(t, func() bool { n, _ := src.calls(); return n >= 4 }, time.Second, 5*time.Millisecond)

	src.set(func(f *fakeSource) {
		f.fail = false
		f.txs = []domain.Transaction{tx(1, domain.TxFailed)}
	})
	require.Eventually(t, func() bool { return len(toaster.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Order failed", toaster.all()[0].Title)
}
