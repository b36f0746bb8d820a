package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/domain"
)

func place(t *testing.T, b *Backend, req domain.TradeRequest) *domain.Transaction {
	t.Helper()
	require.NoError(t, validateTrade(&req))
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, err := b.executeLocked(b.portfolios[b.demoPortfolioID], req)
	require.NoError(t, err)
	return tx
}

func limitPrice(v float64) *float64 { return &v }

func TestMarketBuyThenSellRealizesProfit(t *testing.T) {
	b := NewBackend(Options{})
	pid := b.DemoPortfolioID()

	buy := place(t, b, domain.TradeRequest{Symbol: "aapl", Type: domain.TypeBuy, OrderType: domain.OrderMarket, Quantity: 10, Price: 100})
	assert.Equal(t, domain.TxExecuted, buy.Status)
	assert.Equal(t, "AAPL", buy.Symbol)
	assert.InDelta(t, 0.99, buy.Fee, 1e-9)

	b.SetPrice("AAPL", 110)
	sell := place(t, b, domain.TradeRequest{Symbol: "AAPL", Type: domain.TypeSell, OrderType: domain.OrderMarket, Quantity: 10, Price: 100})
	assert.Equal(t, 110.0, sell.Price)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.positions[pid])
	want := demoStartingCash - 1000 - buy.Fee + 1100 - sell.Fee
	assert.InDelta(t, want, b.portfolios[pid].CurrentCash, 1e-9)
}

func TestSellWithoutSharesIsRejected(t *testing.T) {
	b := NewBackend(Options{})
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.executeLocked(b.portfolios[b.demoPortfolioID], domain.TradeRequest{
		Symbol: "MSFT", Type: domain.TypeSell, OrderType: domain.OrderMarket, Quantity: 1, Price: 10,
	})
	assert.ErrorIs(t, err, errInsufficientShares)
}

func TestLimitOrderRestsUntilFilled(t *testing.T) {
	b := NewBackend(Options{})
	pid := b.DemoPortfolioID()
	tx := place(t, b, domain.TradeRequest{
		Symbol: "TSLA", Type: domain.TypeBuy, OrderType: domain.OrderLimit, Quantity: 2, Price: 250, LimitPrice: limitPrice(245),
	})
	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Equal(t, 245.0, tx.Price)

	ids := b.OpenOrderIDs(pid)
	require.Len(t, ids, 1)
	require.NoError(t, b.FillOrder(ids[0]))
	assert.Empty(t, b.OpenOrderIDs(pid))
	assert.ErrorIs(t, b.FillOrder(ids[0]), errOrderNotOpen)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, domain.TxExecuted, b.transactionLocked(pid, tx.ID).Status)
}

func TestFillDueOnlyTouchesOldOrders(t *testing.T) {
	b := NewBackend(Options{})
	pid := b.DemoPortfolioID()
	place(t, b, domain.TradeRequest{
		Symbol: "AMD", Type: domain.TypeBuy, OrderType: domain.OrderLimit, Quantity: 1, Price: 100, LimitPrice: limitPrice(99),
	})

	assert.Zero(t, b.FillDue(time.Hour))
	assert.Len(t, b.OpenOrderIDs(pid), 1)

	assert.Equal(t, 1, b.FillDue(0))
	assert.Empty(t, b.OpenOrderIDs(pid))
}

func TestExpireOrderCancelsTransaction(t *testing.T) {
	b := NewBackend(Options{})
	pid := b.DemoPortfolioID()
	tx := place(t, b, domain.TradeRequest{
		Symbol: "NVDA", Type: domain.TypeSell, OrderType: domain.OrderStopLoss, Quantity: 1, Price: 100, StopPrice: limitPrice(90),
	})
	ids := b.OpenOrderIDs(pid)
	require.Len(t, ids, 1)
	require.NoError(t, b.ExpireOrder(ids[0]))

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, domain.TxCancelled, b.transactionLocked(pid, tx.ID).Status)
	assert.Equal(t, domain.OrderExpired, b.orders[ids[0]].Status)
}
