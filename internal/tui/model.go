// Package tui is the live portfolio watch screen: summary, open orders,
// recent transactions and the toast stack, refreshed by the order poller
// or the push stream.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/notify"
)

const (
	summaryInterval = 10 * time.Second
	clockInterval   = time.Second
	recentRows      = 10
)

type SummarySource interface {
	Summary(ctx context.Context, portfolioID int64) (*domain.PortfolioSummary, error)
}

// Toasts is the part of the toast service the screen drives.
type Toasts interface {
	List() []notify.Toast
	Click(id string)
	Dismiss(id string)
	SoundEnabled() bool
	SetSoundEnabled(ctx context.Context, enabled bool) error
}

type Invalidator interface {
	Invalidate()
}

// Messages sent into the program from the poller, stream and toast
// service goroutines.
type (
	TransactionsMsg []domain.Transaction
	OrdersMsg       []domain.Order
	ToastsMsg       []notify.Toast
)

type summaryMsg struct {
	summary *domain.PortfolioSummary
	err     error
}

type refreshMsg struct{}

type clockMsg time.Time

type Model struct {
	ctx         context.Context
	portfolioID int64
	title       string
	mode        string

	summaries SummarySource
	toasts    Toasts
	orders    Invalidator

	summary      *domain.PortfolioSummary
	summaryErr   error
	transactions []domain.Transaction
	openOrders   []domain.Order
	toastList    []notify.Toast
	now          time.Time

	width int
}

type Config struct {
	PortfolioID int64
	Title       string
	// Mode labels how order updates arrive, e.g. "polling" or "stream".
	Mode      string
	Summaries SummarySource
	Toasts    Toasts
	Orders    Invalidator
}

func NewModel(ctx context.Context, cfg Config) Model {
	return Model{
		ctx:         ctx,
		portfolioID: cfg.PortfolioID,
		title:       cfg.Title,
		mode:        cfg.Mode,
		summaries:   cfg.Summaries,
		toasts:      cfg.Toasts,
		orders:      cfg.Orders,
		now:         time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSummary(), scheduleRefresh(), tickClock())
}

func (m Model) fetchSummary() tea.Cmd {
	src, ctx, id := m.summaries, m.ctx, m.portfolioID
	return func() tea.Msg {
		s, err := src.Summary(ctx, id)
		return summaryMsg{summary: s, err: err}
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(summaryInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func tickClock() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			if m.orders != nil {
				m.orders.Invalidate()
			}
			return m, m.fetchSummary()
		case key.Matches(msg, keys.Open):
			if len(m.toastList) > 0 {
				m.toasts.Click(m.toastList[0].ID)
				m.toastList = m.toasts.List()
			}
		case key.Matches(msg, keys.Dismiss):
			if len(m.toastList) > 0 {
				m.toasts.Dismiss(m.toastList[0].ID)
				m.toastList = m.toasts.List()
			}
		case key.Matches(msg, keys.Sound):
			m.toasts.SetSoundEnabled(m.ctx, !m.toasts.SoundEnabled())
		}

	case refreshMsg:
		return m, tea.Batch(m.fetchSummary(), scheduleRefresh())

	case clockMsg:
		m.now = time.Time(msg)
		return m, tickClock()

	case summaryMsg:
		if msg.err != nil {
			m.summaryErr = msg.err
		} else {
			m.summary = msg.summary
			m.summaryErr = nil
		}

	case TransactionsMsg:
		prev := m.transactions
		m.transactions = []domain.Transaction(msg)
		if executedSince(prev, m.transactions) {
			return m, m.fetchSummary()
		}

	case OrdersMsg:
		m.openOrders = []domain.Order(msg)

	case ToastsMsg:
		m.toastList = []notify.Toast(msg)
	}
	return m, nil
}

// executedSince reports whether any transaction became executed, which
// moves cash and positions.
func executedSince(prev, next []domain.Transaction) bool {
	if len(prev) == 0 {
		return false
	}
	before := make(map[int64]domain.TransactionStatus, len(prev))
	for _, tx := range prev {
		before[tx.ID] = tx.Status
	}
	for _, tx := range next {
		if tx.Status == domain.TxExecuted && before[tx.ID] != domain.TxExecuted {
			return true
		}
	}
	return false
}
