package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/domain"
)

type recordingExecutor struct {
	calls []domain.TradeRequest
	err   error
}

func (e *recordingExecutor) ExecuteTrade(_ context.Context, _ int64, req domain.TradeRequest) (*domain.Transaction, error) {
	e.calls = append(e.calls, req)
	if e.err != nil {
		return nil, e.err
	}
	return &domain.Transaction{ID: 1, Symbol: req.Symbol, Status: domain.TxPending}, nil
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func TestOrderFormMarketBuild(t *testing.T) {
	f := NewOrderForm(" aapl ", "NASDAQ", 190.5)
	f.SetQuantity(10)

	req, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, domain.TypeBuy, req.Type)
	assert.Equal(t, domain.OrderMarket, req.OrderType)
	assert.Equal(t, 190.5, req.Price)
	assert.Nil(t, req.LimitPrice)
	assert.Nil(t, req.StopPrice)
}

func TestOrderFormLimitDefaultsToMarketable(t *testing.T) {
	f := NewOrderForm("MSFT", "", 100.004)
	f.SetQuantity(5)
	f.SetOrderType(domain.OrderLimit)

	limit, ok := f.LimitPrice()
	require.True(t, ok)
	assert.Equal(t, 100.01, limit)
	assert.False(t, f.LimitOverridden())

	f.SetAction(domain.TypeSell)
	limit, _ = f.LimitPrice()
	assert.Equal(t, 100.0, limit)

	f.SetLimitPrice(99.5)
	req, err := f.Build()
	require.NoError(t, err)
	require.NotNil(t, req.LimitPrice)
	assert.Equal(t, 99.5, *req.LimitPrice)

	f.ClearLimitPrice()
	f.SetCurrentPrice(101.236)
	limit, _ = f.LimitPrice()
	assert.Equal(t, 101.23, limit)
}

func TestOrderFormLimitOverrideSurvivesQuoteAndActionChanges(t *testing.T) {
	f := NewOrderForm("MSFT", "", 100)
	f.SetQuantity(5)
	f.SetOrderType(domain.OrderLimit)
	f.SetLimitPrice(99.5)

	f.SetCurrentPrice(120)
	f.SetAction(domain.TypeSell)

	limit, ok := f.LimitPrice()
	require.True(t, ok)
	assert.Equal(t, 99.5, limit)
	assert.True(t, f.LimitOverridden())

	req, err := f.Build()
	require.NoError(t, err)
	require.NotNil(t, req.LimitPrice)
	assert.Equal(t, 99.5, *req.LimitPrice)
	assert.Equal(t, 120.0, req.Price)
}

func TestOrderFormStopLossRequiresStop(t *testing.T) {
	exec := &recordingExecutor{}
	f := NewOrderForm("TSLA", "", 250)
	f.SetQuantity(3)
	f.SetAction(domain.TypeSell)
	f.SetOrderType(domain.OrderStopLoss)

	_, err := f.Submit(context.Background(), exec, 7)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Stop price is required for stop-loss orders.", verr.Message)
	assert.Empty(t, exec.calls)

	f.SetStopPrice(240)
	inv := &countingInvalidator{}
	tx, err := f.Submit(context.Background(), exec, 7, inv)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", tx.Symbol)
	require.Len(t, exec.calls, 1)
	require.NotNil(t, exec.calls[0].StopPrice)
	assert.Equal(t, 240.0, *exec.calls[0].StopPrice)
	assert.Nil(t, exec.calls[0].LimitPrice)
	assert.Equal(t, 1, inv.n)
}

func TestOrderFormLimitWithoutQuoteOrOverride(t *testing.T) {
	f := NewOrderForm("IBM", "", 50)
	f.SetQuantity(1)
	f.SetOrderType(domain.OrderLimit)
	f.SetLimitPrice(0)

	_, err := f.Build()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Limit price is required for limit orders.", verr.Message)
}

func TestOrderFormCannotSubmit(t *testing.T) {
	exec := &recordingExecutor{}
	f := NewOrderForm("AAPL", "", 0)
	f.SetQuantity(10)
	assert.False(t, f.CanSubmit())
	_, err := f.Submit(context.Background(), exec, 1)
	assert.ErrorIs(t, err, ErrCannotSubmit)

	f.SetCurrentPrice(10)
	f.SetQuantity(-4)
	assert.Equal(t, int64(0), f.Quantity())
	assert.False(t, f.CanSubmit())
	assert.Empty(t, exec.calls)
}

func TestOrderFormBackendErrorSkipsInvalidation(t *testing.T) {
	exec := &recordingExecutor{err: assert.AnError}
	inv := &countingInvalidator{}
	f := NewOrderForm("AAPL", "", 10)
	f.SetQuantity(1)

	_, err := f.Submit(context.Background(), exec, 1, inv)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, inv.n)
}

func TestOrderFormEstimate(t *testing.T) {
	f := NewOrderForm("AAPL", "", 50)
	_, ok := f.Estimate()
	assert.False(t, ok)

	f.SetQuantity(100)
	e, ok := f.Estimate()
	require.True(t, ok)
	assert.Equal(t, "0.99", e.TotalFees.String())
	assert.Equal(t, "5000.99", e.Total.String())
}
