package trading

import (
	"fmt"
	"strings"

	"github.com/yourorg/wealthtracker/internal/domain"
)

func validateTradeRequest(req *domain.TradeRequest) error {
	if req.Quantity <= 0 {
		return fmt.Errorf("quantity must be greater than zero")
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	switch req.Type {
	case domain.TypeBuy, domain.TypeSell, domain.TypeShort, domain.TypeCover:
	default:
		return fmt.Errorf("invalid trade type: %s", req.Type)
	}
	switch req.OrderType {
	case domain.OrderMarket, domain.OrderLimit, domain.OrderStopLoss:
	default:
		return fmt.Errorf("invalid order type: %s", req.OrderType)
	}
	if !validPrice(req.Price) {
		return fmt.Errorf("price must be greater than zero")
	}
	return nil
}
