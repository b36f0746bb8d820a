package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const quoteKeyPrefix = "last_price:"

// Quote is the last price seen for a symbol, typically from a scanner row.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange,omitempty"`
	Price    float64   `json:"price"`
	AsOf     time.Time `json:"asOf"`
}

// Quotes caches last prices in a Store so an order ticket can be priced
// without rerunning a scanner.
type Quotes struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
}

func NewQuotes(store Store, maxAge time.Duration) *Quotes {
	return &Quotes{store: store, maxAge: maxAge, now: time.Now}
}

func quoteKey(symbol string) string {
	return quoteKeyPrefix + strings.ToUpper(strings.TrimSpace(symbol))
}

func (q *Quotes) Put(ctx context.Context, quote Quote) error {
	quote.Symbol = strings.ToUpper(strings.TrimSpace(quote.Symbol))
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	if err := q.store.Set(ctx, quoteKey(quote.Symbol), string(data)); err != nil {
		return fmt.Errorf("store quote %s: %w", quote.Symbol, err)
	}
	return nil
}

// Get returns the cached quote, or ok=false when there is none or it is
// older than maxAge.
func (q *Quotes) Get(ctx context.Context, symbol string) (Quote, bool, error) {
	val, ok, err := q.store.Get(ctx, quoteKey(symbol))
	if err != nil {
		return Quote{}, false, fmt.Errorf("read quote %s: %w", symbol, err)
	}
	if !ok {
		return Quote{}, false, nil
	}
	var quote Quote
	if err := json.Unmarshal([]byte(val), &quote); err != nil {
		return Quote{}, false, nil
	}
	if q.maxAge > 0 && q.now().Sub(quote.AsOf) > q.maxAge {
		return Quote{}, false, nil
	}
	return quote, true, nil
}
