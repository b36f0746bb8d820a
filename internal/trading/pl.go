package trading

import (
	"math"

	"github.com/yourorg/wealthtracker/internal/domain"
)

// WithPL derives cost, value and unrealized profit for a position. Values
// depending on the current price are nil when no price is known.
func WithPL(p domain.Position) domain.PositionWithPL {
	out := domain.PositionWithPL{
		PositionID:   p.ID,
		Symbol:       p.Symbol,
		Exchange:     p.Exchange,
		Quantity:     p.Quantity,
		IsShort:      p.IsShort,
		AverageCost:  p.AverageCost,
		CurrentPrice: p.CurrentPrice,
		TotalCost:    math.Abs(p.Quantity * p.AverageCost),
		RealizedPL:   p.RealizedPL,
		BorrowCost:   p.BorrowCost,
	}
	if p.CurrentPrice == nil {
		return out
	}

	cur := *p.CurrentPrice
	value := math.Abs(p.Quantity * cur)
	unrealized := (cur - p.AverageCost) * p.Quantity
	if p.IsShort {
		unrealized = (p.AverageCost - cur) * p.Quantity
	}
	out.CurrentValue = &value
	out.UnrealizedPL = &unrealized
	if out.TotalCost != 0 {
		pct := unrealized / out.TotalCost
		out.UnrealizedPLPercentage = &pct
	}
	return out
}

// Summarize rolls positions up into portfolio totals. Short positions
// count against equity.
func Summarize(portfolio domain.Portfolio, positions []domain.Position) domain.PortfolioSummary {
	s := domain.PortfolioSummary{
		Cash:      portfolio.CurrentCash,
		Positions: make([]domain.PositionWithPL, 0, len(positions)),
	}
	var realized, unrealized float64
	for _, p := range positions {
		pl := WithPL(p)
		if pl.CurrentValue != nil {
			if p.IsShort {
				s.EquityValue -= *pl.CurrentValue
			} else {
				s.EquityValue += *pl.CurrentValue
			}
		}
		realized += p.RealizedPL
		if pl.UnrealizedPL != nil {
			unrealized += *pl.UnrealizedPL
		}
		s.Positions = append(s.Positions, pl)
	}
	s.TotalValue = s.Cash + s.EquityValue
	s.TotalPL = realized + unrealized
	if portfolio.InitialCash != 0 {
		s.TotalPLPercentage = s.TotalPL / portfolio.InitialCash
	}
	return s
}
