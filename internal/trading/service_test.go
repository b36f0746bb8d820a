package trading_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/apiclient"
	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/sandbox"
	"github.com/yourorg/wealthtracker/internal/storage"
	"github.com/yourorg/wealthtracker/internal/trading"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// demoSession logs in as the demo user and returns a store holding the
// session plus an authenticated client.
func demoSession(t *testing.T, srv *sandbox.Server) (storage.Store, *apiclient.Client) {
	t.Helper()
	ctx := context.Background()
	plain := apiclient.New(srv.APIURL())
	resp, err := plain.DemoLogin(ctx)
	require.NoError(t, err)

	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, resp.AccessToken))
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, resp.RefreshToken))
	return store, apiclient.NewAuthenticated(srv.APIURL(), store, plain)
}

func limit(v float64) *float64 { return &v }

func TestServicePortfolioLifecycle(t *testing.T) {
	srv := sandbox.New(t)
	_, client := demoSession(t, srv)
	svc := trading.NewService(client, discardLogger())
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, domain.CreatePortfolioRequest{Name: "Swing", InitialCash: 10000})
	require.NoError(t, err)
	assert.Equal(t, "Swing", p.Name)
	assert.Equal(t, 10000.0, p.CurrentCash)

	list, err := svc.Portfolios(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	srv.SetPrice("AAPL", 100)
	tx, err := svc.ExecuteTrade(ctx, p.ID, domain.TradeRequest{
		Symbol: "AAPL", Type: domain.TypeBuy, Quantity: 10, Price: 100, OrderType: domain.OrderMarket,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxExecuted, tx.Status)

	details, err := svc.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, details.Positions, 1)
	assert.Equal(t, 10.0, details.Positions[0].Quantity)
	assert.InDelta(t, 10000-1000-0.99, details.Portfolio.CurrentCash, 1e-9)

	sum, err := svc.Summary(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1000, sum.EquityValue, 1e-9)
	require.Len(t, sum.Positions, 1)
}

func TestServiceRejectsInvalidTradeLocally(t *testing.T) {
	srv := sandbox.New(t)
	_, client := demoSession(t, srv)
	svc := trading.NewService(client, discardLogger())

	_, err := svc.ExecuteTrade(context.Background(), srv.DemoPortfolioID(), domain.TradeRequest{
		Symbol: "AAPL", Type: domain.TypeBuy, Quantity: 0, Price: 10, OrderType: domain.OrderMarket,
	})
	require.Error(t, err)
	txs, err := svc.Transactions(context.Background(), srv.DemoPortfolioID(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestServiceBackendErrorMessage(t *testing.T) {
	srv := sandbox.New(t)
	_, client := demoSession(t, srv)
	svc := trading.NewService(client, discardLogger())

	_, err := svc.ExecuteTrade(context.Background(), srv.DemoPortfolioID(), domain.TradeRequest{
		Symbol: "AAPL", Type: domain.TypeSell, Quantity: 5, Price: 10, OrderType: domain.OrderMarket,
	})
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, "insufficient shares", apiclient.ErrorMessage(err, "Trade failed"))
}

func TestServiceOpenOrdersAndCancel(t *testing.T) {
	srv := sandbox.New(t)
	_, client := demoSession(t, srv)
	svc := trading.NewService(client, discardLogger())
	ctx := context.Background()
	pid := srv.DemoPortfolioID()

	tx, err := svc.ExecuteTrade(ctx, pid, domain.TradeRequest{
		Symbol: "MSFT", Type: domain.TypeBuy, Quantity: 5, Price: 400,
		OrderType: domain.OrderLimit, LimitPrice: limit(395),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, tx.Status)

	orders, err := svc.OpenOrders(ctx, pid)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderLimit, orders[0].OrderType)

	require.NoError(t, svc.CancelOrder(ctx, orders[0].ID))
	orders, err = svc.OpenOrders(ctx, pid)
	require.NoError(t, err)
	assert.Empty(t, orders)

	txs, err := svc.Transactions(ctx, pid, 1, 50)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxCancelled, txs[0].Status)

	err = svc.CancelOrder(ctx, 999)
	assert.True(t, apiclient.IsStatus(err, http.StatusNotFound))
}

func TestServiceTransactionsPaging(t *testing.T) {
	srv := sandbox.New(t)
	_, client := demoSession(t, srv)
	svc := trading.NewService(client, discardLogger())
	ctx := context.Background()
	pid := srv.DemoPortfolioID()

	for i := 0; i < 3; i++ {
		_, err := svc.ExecuteTrade(ctx, pid, domain.TradeRequest{
			Symbol: "AAPL", Type: domain.TypeBuy, Quantity: int64(i + 1), Price: 10, OrderType: domain.OrderMarket,
		})
		require.NoError(t, err)
	}

	first, err := svc.Transactions(ctx, pid, 1, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 3.0, first[0].Quantity)

	second, err := svc.Transactions(ctx, pid, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1.0, second[0].Quantity)
}

func TestServiceRefreshesExpiredSession(t *testing.T) {
	srv := sandbox.New(t)
	store, client := demoSession(t, srv)
	svc := trading.NewService(client, discardLogger())
	ctx := context.Background()

	before, _, _ := store.Get(ctx, storage.KeyAccessToken)
	srv.ExpireAccessTokens()

	list, err := svc.Portfolios(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, srv.RefreshCalls())

	after, _, _ := store.Get(ctx, storage.KeyAccessToken)
	assert.NotEqual(t, before, after)
}
