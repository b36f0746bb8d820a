package trading

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourorg/wealthtracker/internal/domain"
)

var (
	minCommission    = decimal.RequireFromString("0.99")
	maxCommission    = decimal.RequireFromString("7.95")
	commissionPerSh  = decimal.RequireFromString("0.005")
	tafPerShare      = decimal.RequireFromString("0.000166")
	secRate          = decimal.RequireFromString("0.0000278")
	locatePerShare   = decimal.RequireFromString("0.01")
	minLimitPrice    = decimal.RequireFromString("0.01")
	commissionCutoff = int64(200)
)

type FeeInput struct {
	Action       domain.TransactionType
	OrderType    domain.OrderType
	Quantity     int64
	CurrentPrice float64
}

type Estimate struct {
	Commission decimal.Decimal
	TAFFee     decimal.Decimal
	SECFee     decimal.Decimal
	LocateFee  decimal.Decimal
	TotalFees  decimal.Decimal
	Notional   decimal.Decimal
	Total      decimal.Decimal
}

func (e Estimate) Breakdown() domain.FeeBreakdown {
	return domain.FeeBreakdown{
		Commission: e.Commission.InexactFloat64(),
		TAFFee:     e.TAFFee.InexactFloat64(),
		SECFee:     e.SECFee.InexactFloat64(),
		LocateFee:  e.LocateFee.InexactFloat64(),
		TotalFees:  e.TotalFees.InexactFloat64(),
	}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// EstimateFees prices an order before submission. It reports false when
// there is no usable price or quantity.
func EstimateFees(in FeeInput) (Estimate, bool) {
	if !validPrice(in.CurrentPrice) || in.Quantity <= 0 {
		return Estimate{}, false
	}
	q := decimal.NewFromInt(in.Quantity)
	p := decimal.NewFromFloat(in.CurrentPrice)

	var e Estimate
	e.Commission = decimal.Zero
	e.TAFFee = decimal.Zero
	e.SECFee = decimal.Zero
	e.LocateFee = decimal.Zero

	if in.OrderType == domain.OrderMarket || in.OrderType == domain.OrderStopLoss || in.Quantity < commissionCutoff {
		e.Commission = decimal.Min(decimal.Max(minCommission, q.Mul(commissionPerSh)), maxCommission)
	}
	if in.Action == domain.TypeSell || in.Action == domain.TypeShort {
		e.TAFFee = q.Mul(tafPerShare)
		e.SECFee = q.Mul(p).Mul(secRate)
	}
	if in.Action == domain.TypeShort {
		e.LocateFee = q.Mul(locatePerShare)
	}

	e.TotalFees = e.Commission.Add(e.TAFFee).Add(e.SECFee).Add(e.LocateFee)
	e.Notional = q.Mul(p)
	e.Total = e.Notional.Add(e.TotalFees)
	return e, true
}

// MarketableLimit is a limit price just through the quote: rounded up to
// the cent when buying or covering, down when selling or shorting, and
// never below one cent.
func MarketableLimit(price float64, action domain.TransactionType) float64 {
	d := decimal.NewFromFloat(price)
	switch action {
	case domain.TypeBuy, domain.TypeCover:
		d = d.Shift(2).Ceil().Shift(-2)
	default:
		d = d.Shift(2).Floor().Shift(-2)
	}
	return decimal.Max(d, minLimitPrice).InexactFloat64()
}
