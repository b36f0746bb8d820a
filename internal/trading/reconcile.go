package trading

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/format"
	"github.com/yourorg/wealthtracker/internal/notify"
)

const viewPortfolioLabel = "View portfolio"

type Toaster interface {
	Toast(opts notify.Options) string
}

// Reconciler diffs consecutive transaction and open-order snapshots and
// raises a toast for each change worth telling the user about.
type Reconciler struct {
	mu         sync.Mutex
	prevTx     map[int64]domain.TransactionStatus
	prevOrders map[int64]struct{}

	toaster         Toaster
	onViewPortfolio func()
}

func NewReconciler(toaster Toaster, onViewPortfolio func()) *Reconciler {
	return &Reconciler{
		prevTx:          make(map[int64]domain.TransactionStatus),
		prevOrders:      make(map[int64]struct{}),
		toaster:         toaster,
		onViewPortfolio: onViewPortfolio,
	}
}

// Reset forgets both snapshots, e.g. when switching portfolios.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prevTx = make(map[int64]domain.TransactionStatus)
	r.prevOrders = make(map[int64]struct{})
}

// ObserveTransactions notifies once for every known transaction whose
// status changed. Transactions seen for the first time are only recorded.
func (r *Reconciler) ObserveTransactions(txs []domain.Transaction) int {
	r.mu.Lock()
	next := make(map[int64]domain.TransactionStatus, len(txs))
	var changed []domain.Transaction
	for _, tx := range txs {
		next[tx.ID] = tx.Status
		prev, seen := r.prevTx[tx.ID]
		if seen && prev != tx.Status {
			changed = append(changed, tx)
		}
	}
	r.prevTx = next
	r.mu.Unlock()

	for _, tx := range changed {
		r.toaster.Toast(transactionToast(tx, r.onViewPortfolio))
	}
	return len(changed)
}

// ObserveOpenOrders notifies for every open order not in the previous
// snapshot. Orders that disappear are silent.
func (r *Reconciler) ObserveOpenOrders(orders []domain.Order) int {
	r.mu.Lock()
	next := make(map[int64]struct{}, len(orders))
	var placed []domain.Order
	for _, o := range orders {
		next[o.ID] = struct{}{}
		if _, seen := r.prevOrders[o.ID]; !seen {
			placed = append(placed, o)
		}
	}
	r.prevOrders = next
	r.mu.Unlock()

	for _, o := range placed {
		r.toaster.Toast(notify.Options{
			Title:       "Order placed",
			Description: fmt.Sprintf("%s %s %s • %s", strings.ToUpper(string(o.Type)), format.Quantity(o.Quantity), o.Symbol, o.OrderType),
			Variant:     notify.VariantDefault,
			Sound:       notify.SoundNone,
			ActionLabel: viewPortfolioLabel,
			OnClick:     r.onViewPortfolio,
		})
	}
	return len(placed)
}

func transactionToast(tx domain.Transaction, onClick func()) notify.Options {
	opts := notify.Options{
		Description: fmt.Sprintf("%s %s %s @ %s • Fees %s",
			strings.ToUpper(string(tx.Type)), format.Quantity(tx.Quantity), tx.Symbol,
			format.USD(tx.Price), format.USD(tx.Fee)),
		ActionLabel: viewPortfolioLabel,
		OnClick:     onClick,
	}
	switch tx.Status {
	case domain.TxExecuted:
		opts.Title, opts.Variant, opts.Sound = "Order filled", notify.VariantSuccess, notify.SoundSuccess
	case domain.TxCancelled:
		opts.Title, opts.Variant, opts.Sound = "Order cancelled", notify.VariantWarning, notify.SoundWarning
	case domain.TxFailed:
		opts.Title, opts.Variant, opts.Sound = "Order failed", notify.VariantDestructive, notify.SoundError
	default:
		opts.Title, opts.Variant, opts.Sound = "Order updated", notify.VariantDefault, notify.SoundNone
	}
	return opts
}
