package trading

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/wealthtracker/internal/domain"
)

const DefaultPollInterval = 5 * time.Second

type Source interface {
	Transactions(ctx context.Context, portfolioID int64, page, pageSize int) ([]domain.Transaction, error)
	OpenOrders(ctx context.Context, portfolioID int64) ([]domain.Order, error)
}

// Poller refetches recent transactions and open orders on two independent
// intervals and feeds each snapshot to the Reconciler. A failed fetch
// keeps the previous snapshot.
type Poller struct {
	src         Source
	rec         *Reconciler
	portfolioID int64
	interval    time.Duration
	logger      *slog.Logger

	txKick    chan struct{}
	orderKick chan struct{}

	onTransactions func([]domain.Transaction)
	onOrders       func([]domain.Order)
}

func NewPoller(src Source, rec *Reconciler, portfolioID int64, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		src:         src,
		rec:         rec,
		portfolioID: portfolioID,
		interval:    interval,
		logger:      logger,
		txKick:      make(chan struct{}, 1),
		orderKick:   make(chan struct{}, 1),
	}
}

// OnTransactions registers a callback for every successful transactions
// fetch. Call before Run.
func (p *Poller) OnTransactions(fn func([]domain.Transaction)) {
	p.onTransactions = fn
}

// OnOrders registers a callback for every successful open-orders fetch.
// Call before Run.
func (p *Poller) OnOrders(fn func([]domain.Order)) {
	p.onOrders = fn
}

// Invalidate makes both loops refetch now instead of waiting.
func (p *Poller) Invalidate() {
	for _, ch := range []chan struct{}{p.txKick, p.orderKick} {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.loop(ctx, p.txKick, p.pollTransactions)
		return nil
	})
	g.Go(func() error {
		p.loop(ctx, p.orderKick, p.pollOrders)
		return nil
	})
	return g.Wait()
}

func (p *Poller) loop(ctx context.Context, kick <-chan struct{}, poll func(context.Context)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-kick:
			ticker.Reset(p.interval)
		}
		poll(ctx)
	}
}

func (p *Poller) pollTransactions(ctx context.Context) {
	txs, err := p.src.Transactions(ctx, p.portfolioID, 1, notifierPageSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("transactions poll failed", "portfolio_id", p.portfolioID, "err", err)
		}
		return
	}
	p.rec.ObserveTransactions(txs)
	if p.onTransactions != nil {
		p.onTransactions(txs)
	}
}

func (p *Poller) pollOrders(ctx context.Context) {
	orders, err := p.src.OpenOrders(ctx, p.portfolioID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("open orders poll failed", "portfolio_id", p.portfolioID, "err", err)
		}
		return
	}
	p.rec.ObserveOpenOrders(orders)
	if p.onOrders != nil {
		p.onOrders(orders)
	}
}
