package trading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/storage"
)

// Snapshot is one push message from the stream: the portfolio's current
// recent transactions or open orders.
type Snapshot struct {
	Type         string               `json:"type"`
	PortfolioID  int64                `json:"portfolioId"`
	Transactions []domain.Transaction `json:"transactions,omitempty"`
	Orders       []domain.Order       `json:"orders,omitempty"`
}

const (
	SnapshotTransactions = "transactions"
	SnapshotOrders       = "orders"
)

type subscribeMessage struct {
	Action     string  `json:"action"`
	Portfolios []int64 `json:"portfolios"`
}

var errStreamUnauthorized = errors.New("stream rejected credentials")

// StreamFeed receives snapshots over a websocket and feeds them to the same
// Reconciler the Poller uses. It reconnects with exponential backoff.
type StreamFeed struct {
	url         string
	portfolioID int64
	store       storage.Store
	rec         *Reconciler
	logger      *slog.Logger
	dialer      *websocket.Dialer

	minBackoff time.Duration
	maxBackoff time.Duration
	onSnapshot func(Snapshot)
}

func NewStreamFeed(url string, portfolioID int64, store storage.Store, rec *Reconciler, logger *slog.Logger) *StreamFeed {
	return &StreamFeed{
		url:         url,
		portfolioID: portfolioID,
		store:       store,
		rec:         rec,
		logger:      logger,
		dialer:      websocket.DefaultDialer,
		minBackoff:  time.Second,
		maxBackoff:  60 * time.Second,
	}
}

// OnSnapshot registers a callback run after each snapshot is reconciled.
// Call before Run.
func (f *StreamFeed) OnSnapshot(fn func(Snapshot)) {
	f.onSnapshot = fn
}

func (f *StreamFeed) Run(ctx context.Context) {
	backoff := f.minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		err := f.connect(ctx)
		if err == nil {
			backoff = f.minBackoff
			continue
		}
		if ctx.Err() != nil {
			return
		}
		f.logger.Error("order stream disconnected", "err", err, "retrying_in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}

func (f *StreamFeed) connect(ctx context.Context) error {
	header := http.Header{}
	token, ok, err := f.store.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	if ok {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return errStreamUnauthorized
		}
		return err
	}
	defer func() {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	sub, _ := json.Marshal(subscribeMessage{Action: "subscribe", Portfolios: []int64{f.portfolioID}})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return err
	}
	f.logger.Info("order stream connected", "portfolio_id", f.portfolioID)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			f.logger.Warn("bad stream message", "err", err)
			continue
		}
		if snap.PortfolioID != f.portfolioID {
			continue
		}
		switch snap.Type {
		case SnapshotTransactions:
			f.rec.ObserveTransactions(snap.Transactions)
		case SnapshotOrders:
			f.rec.ObserveOpenOrders(snap.Orders)
		default:
			continue
		}
		if f.onSnapshot != nil {
			f.onSnapshot(snap)
		}
	}
}
