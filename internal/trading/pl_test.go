package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wealthtracker/internal/domain"
)

func price(v float64) *float64 { return &v }

func TestWithPL(t *testing.T) {
	long := WithPL(domain.Position{ID: 1, Symbol: "AAPL", Quantity: 10, AverageCost: 100, CurrentPrice: price(110)})
	assert.Equal(t, 1000.0, long.TotalCost)
	require.NotNil(t, long.CurrentValue)
	assert.Equal(t, 1100.0, *long.CurrentValue)
	assert.Equal(t, 100.0, *long.UnrealizedPL)
	assert.InDelta(t, 0.1, *long.UnrealizedPLPercentage, 1e-12)

	short := WithPL(domain.Position{ID: 2, Symbol: "TSLA", Quantity: 5, IsShort: true, AverageCost: 200, CurrentPrice: price(180)})
	assert.Equal(t, 1000.0, short.TotalCost)
	assert.Equal(t, 900.0, *short.CurrentValue)
	assert.Equal(t, 100.0, *short.UnrealizedPL)

	unknown := WithPL(domain.Position{ID: 3, Symbol: "X", Quantity: 1, AverageCost: 5})
	assert.Nil(t, unknown.CurrentValue)
	assert.Nil(t, unknown.UnrealizedPL)
	assert.Nil(t, unknown.UnrealizedPLPercentage)
}

func TestSummarize(t *testing.T) {
	p := domain.Portfolio{ID: 1, InitialCash: 10000, CurrentCash: 8000}
	s := Summarize(p, []domain.Position{
		{ID: 1, Symbol: "AAPL", Quantity: 10, AverageCost: 100, CurrentPrice: price(110), RealizedPL: 50},
		{ID: 2, Symbol: "TSLA", Quantity: 5, IsShort: true, AverageCost: 200, CurrentPrice: price(180)},
	})
	assert.Equal(t, 8000.0, s.Cash)
	assert.Equal(t, 1100.0-900.0, s.EquityValue)
	assert.Equal(t, 8200.0, s.TotalValue)
	assert.Equal(t, 250.0, s.TotalPL)
	assert.InDelta(t, 0.025, s.TotalPLPercentage, 1e-12)
	assert.Len(t, s.Positions, 2)
}
