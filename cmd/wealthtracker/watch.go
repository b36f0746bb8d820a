package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/notify"
	"github.com/yourorg/wealthtracker/internal/trading"
	"github.com/yourorg/wealthtracker/internal/tui"
)

type watchCmd struct {
	portfolio portfolioFlag
	stream    bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "live portfolio view with order notifications" }
func (*watchCmd) Usage() string {
	return `watch [-portfolio <id>] [-stream]

Polls transactions and open orders every POLL_INTERVAL and raises a
notification when an order is placed, filled, cancelled or fails. With
-stream, updates are pushed over a websocket instead.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.portfolio.register(f)
	f.BoolVar(&c.stream, "stream", false, "receive updates over the websocket stream")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		p, err := a.resolvePortfolio(ctx, c.portfolio.id)
		if err != nil {
			return err
		}
		return a.watch(ctx, p, c.stream)
	})
}

func (a *app) watch(ctx context.Context, p domain.Portfolio, stream bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	send := func(msg tea.Msg) { program.Send(msg) }

	var poller *trading.Poller
	rec := trading.NewReconciler(a.toasts, func() { poller.Invalidate() })
	poller = trading.NewPoller(a.trading, rec, p.ID, a.cfg.PollInterval, a.logger)
	poller.OnTransactions(func(txs []domain.Transaction) { send(tui.TransactionsMsg(txs)) })
	poller.OnOrders(func(orders []domain.Order) { send(tui.OrdersMsg(orders)) })

	mode := "polling"
	var run func(context.Context)
	var orders tui.Invalidator
	if stream {
		mode = "stream"
		streamURL, err := a.streamURL()
		if err != nil {
			return err
		}
		feed := trading.NewStreamFeed(streamURL, p.ID, a.store, rec, a.logger)
		feed.OnSnapshot(func(s trading.Snapshot) {
			switch s.Type {
			case trading.SnapshotTransactions:
				send(tui.TransactionsMsg(s.Transactions))
			case trading.SnapshotOrders:
				send(tui.OrdersMsg(s.Orders))
			}
		})
		run = feed.Run
	} else {
		run = func(ctx context.Context) { poller.Run(ctx) }
		orders = poller
	}

	model := tui.NewModel(ctx, tui.Config{
		PortfolioID: p.ID,
		Title:       p.Name,
		Mode:        mode,
		Summaries:   a.trading,
		Toasts:      a.toasts,
		Orders:      orders,
	})
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	toasts := newLatest[[]notify.Toast]()
	unsubscribe := a.toasts.Subscribe(toasts.put)
	defer unsubscribe()
	go toasts.forward(ctx, func(ts []notify.Toast) { send(tui.ToastsMsg(ts)) })

	go run(ctx)
	go func() {
		select {
		case <-a.expired:
			program.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch: %w", err)
	}
	select {
	case <-a.expired:
		return fmt.Errorf("session expired, run login again")
	default:
	}
	return nil
}

// latest hands the most recent value to a single forwarding goroutine.
// Toast changes can be published from inside the program's own update
// loop, where a direct Send would block.
type latest[T any] struct {
	mu     sync.Mutex
	value  T
	signal chan struct{}
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{signal: make(chan struct{}, 1)}
}

func (l *latest[T]) put(v T) {
	l.mu.Lock()
	l.value = v
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *latest[T]) forward(ctx context.Context, fn func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.signal:
			l.mu.Lock()
			v := l.value
			l.mu.Unlock()
			fn(v)
		}
	}
}

// streamURL is STREAM_URL, or the API base with a websocket scheme and
// /ws appended.
func (a *app) streamURL() (string, error) {
	if a.cfg.StreamURL != "" {
		return a.cfg.StreamURL, nil
	}
	u, err := url.Parse(a.cfg.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("derive stream url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
