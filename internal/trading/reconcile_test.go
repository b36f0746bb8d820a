package trading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/notify"
)

type recordingToaster struct {
	mu    sync.Mutex
	shown []notify.Options
}

func (r *recordingToaster) Toast(opts notify.Options) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, opts)
	return "id"
}

func (r *recordingToaster) all() []notify.Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Options(nil), r.shown...)
}

func tx(id int64, status domain.TransactionStatus) domain.Transaction {
	return domain.Transaction{
		ID: id, Symbol: "AAPL", Type: domain.TypeBuy, Quantity: 10,
		Price: 150.25, Fee: 0.99, Status: status,
	}
}

func TestReconcilerTransactionTransitions(t *testing.T) {
	toaster := &recordingToaster{}
	clicked := 0
	r := NewReconciler(toaster, func() { clicked++ })

	assert.Zero(t, r.ObserveTransactions([]domain.Transaction{tx(1, domain.TxPending), tx(2, domain.TxExecuted)}))
	assert.Empty(t, toaster.all())

	assert.Zero(t, r.ObserveTransactions([]domain.Transaction{tx(1, domain.TxPending), tx(2, domain.TxExecuted)}))

	assert.Equal(t, 1, r.ObserveTransactions([]domain.Transaction{tx(1, domain.TxExecuted), tx(2, domain.TxExecuted)}))
	shown := toaster.all()
	require.Len(t, shown, 1)
	assert.Equal(t, "Order filled", shown[0].Title)
	assert.Equal(t, notify.VariantSuccess, shown[0].Variant)
	assert.Equal(t, notify.SoundSuccess, shown[0].Sound)
	assert.Equal(t, "BUY 10 AAPL @ $150.25 • Fees $0.99", shown[0].Description)
	assert.Equal(t, "View portfolio", shown[0].ActionLabel)
	shown[0].OnClick()
	assert.Equal(t, 1, clicked)

	assert.Zero(t, r.ObserveTransactions([]domain.Transaction{tx(1, domain.TxExecuted)}))
}

func TestReconcilerTransactionToastKinds(t *testing.T) {
	tests := []struct {
		status  domain.TransactionStatus
		title   string
		variant notify.Variant
		sound   notify.Sound
	}{
		{domain.TxCancelled, "Order cancelled", notify.VariantWarning, notify.SoundWarning},
		{domain.TxFailed, "Order failed", notify.VariantDestructive, notify.SoundError},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			toaster := &recordingToaster{}
			r := NewReconciler(toaster, nil)
			r.ObserveTransactions([]domain.Transaction{tx(9, domain.TxPending)})
			r.ObserveTransactions([]domain.Transaction{tx(9, tt.status)})
			shown := toaster.all()
			require.Len(t, shown, 1)
			assert.Equal(t, tt.title, shown[0].Title)
			assert.Equal(t, tt.variant, shown[0].Variant)
			assert.Equal(t, tt.sound, shown[0].Sound)
		})
	}
}

func TestReconcilerOpenOrders(t *testing.T) {
	toaster := &recordingToaster{}
	r := NewReconciler(toaster, nil)
	limit := 150.0
	order := domain.Order{ID: 5, Symbol: "AAPL", Type: domain.TypeBuy, OrderType: domain.OrderLimit, Quantity: 100, LimitPrice: &limit}

	assert.Equal(t, 1, r.ObserveOpenOrders([]domain.Order{order}))
	shown := toaster.all()
	require.Len(t, shown, 1)
	assert.Equal(t, "Order placed", shown[0].Title)
	assert.Equal(t, "BUY 100 AAPL • limit", shown[0].Description)

	assert.Zero(t, r.ObserveOpenOrders([]domain.Order{order}))
	assert.Zero(t, r.ObserveOpenOrders(nil))
	assert.Len(t, toaster.all(), 1)
}

func TestReconcilerReset(t *testing.T) {
	toaster := &recordingToaster{}
	r := NewReconciler(toaster, nil)
	r.ObserveTransactions([]domain.Transaction{tx(1, domain.TxPending)})
	r.Reset()
	assert.Zero(t, r.ObserveTransactions([]domain.Transaction{tx(1, domain.TxExecuted)}))
	assert.Empty(t, toaster.all())
}
