package trading

import (
	"context"
	"errors"
	"strings"

	"github.com/yourorg/wealthtracker/internal/domain"
)

// ErrCannotSubmit means the form lacks a price or a positive quantity.
var ErrCannotSubmit = errors.New("order form is incomplete")

const (
	msgLimitRequired = "Limit price is required for limit orders."
	msgStopRequired  = "Stop price is required for stop-loss orders."
)

// ValidationError is a local form error shown inline; nothing was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Executor interface {
	ExecuteTrade(ctx context.Context, portfolioID int64, req domain.TradeRequest) (*domain.Transaction, error)
}

// Invalidator is anything holding data a fill makes stale.
type Invalidator interface {
	Invalidate()
}

// OrderForm is the order ticket for one symbol.
type OrderForm struct {
	Symbol   string
	Exchange string

	action       domain.TransactionType
	orderType    domain.OrderType
	quantity     int64
	currentPrice float64

	defaultLimit  float64
	limitOverride *float64
	stopPrice     *float64
}

func NewOrderForm(symbol, exchange string, currentPrice float64) *OrderForm {
	f := &OrderForm{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Exchange:  exchange,
		action:    domain.TypeBuy,
		orderType: domain.OrderMarket,
	}
	f.SetCurrentPrice(currentPrice)
	return f
}

func (f *OrderForm) Action() domain.TransactionType { return f.action }
func (f *OrderForm) OrderType() domain.OrderType    { return f.orderType }
func (f *OrderForm) Quantity() int64                { return f.quantity }
func (f *OrderForm) CurrentPrice() float64          { return f.currentPrice }

func (f *OrderForm) SetAction(a domain.TransactionType) {
	f.action = a
	f.recomputeDefaultLimit()
}

func (f *OrderForm) SetOrderType(t domain.OrderType) {
	f.orderType = t
}

// SetQuantity takes whole shares; negative values count as zero.
func (f *OrderForm) SetQuantity(q int64) {
	f.quantity = max(0, q)
}

// SetCurrentPrice updates the quote. Zero or invalid means unknown.
func (f *OrderForm) SetCurrentPrice(p float64) {
	if !validPrice(p) {
		p = 0
	}
	f.currentPrice = p
	f.recomputeDefaultLimit()
}

// SetLimitPrice overrides the marketable default.
func (f *OrderForm) SetLimitPrice(p float64) {
	f.limitOverride = &p
}

// ClearLimitPrice drops the override so the default follows the quote.
func (f *OrderForm) ClearLimitPrice() {
	f.limitOverride = nil
}

func (f *OrderForm) SetStopPrice(p float64) {
	f.stopPrice = &p
}

func (f *OrderForm) ClearStopPrice() {
	f.stopPrice = nil
}

func (f *OrderForm) recomputeDefaultLimit() {
	if f.currentPrice <= 0 {
		f.defaultLimit = 0
		return
	}
	f.defaultLimit = MarketableLimit(f.currentPrice, f.action)
}

// LimitPrice is the limit that would be sent: the override when set,
// otherwise the marketable default.
func (f *OrderForm) LimitPrice() (float64, bool) {
	if f.limitOverride != nil {
		return *f.limitOverride, true
	}
	return f.defaultLimit, f.defaultLimit > 0
}

func (f *OrderForm) LimitOverridden() bool {
	return f.limitOverride != nil
}

func (f *OrderForm) Estimate() (Estimate, bool) {
	return EstimateFees(FeeInput{
		Action:       f.action,
		OrderType:    f.orderType,
		Quantity:     f.quantity,
		CurrentPrice: f.currentPrice,
	})
}

func (f *OrderForm) CanSubmit() bool {
	return f.currentPrice > 0 && f.quantity > 0 && f.Symbol != ""
}

// Build validates the form and returns the request to send.
func (f *OrderForm) Build() (domain.TradeRequest, error) {
	if !f.CanSubmit() {
		return domain.TradeRequest{}, ErrCannotSubmit
	}
	req := domain.TradeRequest{
		Symbol:    f.Symbol,
		Exchange:  f.Exchange,
		Type:      f.action,
		Quantity:  f.quantity,
		Price:     f.currentPrice,
		OrderType: f.orderType,
	}

	switch f.orderType {
	case domain.OrderLimit:
		limit, ok := f.LimitPrice()
		if !ok || !validPrice(limit) {
			return domain.TradeRequest{}, &ValidationError{Message: msgLimitRequired}
		}
		req.LimitPrice = &limit
	case domain.OrderStopLoss:
		if f.stopPrice == nil || !validPrice(*f.stopPrice) {
			return domain.TradeRequest{}, &ValidationError{Message: msgStopRequired}
		}
		stop := *f.stopPrice
		req.StopPrice = &stop
	}

	if err := validateTradeRequest(&req); err != nil {
		return domain.TradeRequest{}, &ValidationError{Message: err.Error()}
	}
	return req, nil
}

// Submit validates, sends the order and invalidates dependent views once
// the backend accepts it. No request is made when validation fails.
func (f *OrderForm) Submit(ctx context.Context, exec Executor, portfolioID int64, after ...Invalidator) (*domain.Transaction, error) {
	req, err := f.Build()
	if err != nil {
		return nil, err
	}
	tx, err := exec.ExecuteTrade(ctx, portfolioID, req)
	if err != nil {
		return nil, err
	}
	for _, inv := range after {
		inv.Invalidate()
	}
	return tx, nil
}
