package sandbox

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/yourorg/wealthtracker/internal/domain"
)

var (
	errInsufficientCash   = errors.New("insufficient cash")
	errInsufficientShares = errors.New("insufficient shares")
	errOrderNotFound      = errors.New("order not found")
	errOrderNotOpen       = errors.New("order is not open")
)

func validateTrade(req *domain.TradeRequest) error {
	if req.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if _, ok := domain.ParseTransactionType(string(req.Type)); !ok {
		return fmt.Errorf("invalid trade type: %s", req.Type)
	}
	switch req.OrderType {
	case domain.OrderMarket:
	case domain.OrderLimit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 {
			return fmt.Errorf("limit price is required for limit orders")
		}
	case domain.OrderStopLoss:
		if req.StopPrice == nil || *req.StopPrice <= 0 {
			return fmt.Errorf("stop price is required for stop-loss orders")
		}
	default:
		return fmt.Errorf("invalid order type: %s", req.OrderType)
	}
	if req.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

// fees is a flat commission plus regulatory fees on the sell side.
func fees(t domain.TransactionType, qty, price float64) domain.FeeBreakdown {
	var f domain.FeeBreakdown
	f.Commission = math.Min(math.Max(0.99, qty*0.005), 7.95)
	if t == domain.TypeSell || t == domain.TypeShort {
		f.TAFFee = qty * 0.000166
		f.SECFee = qty * price * 0.0000278
	}
	if t == domain.TypeShort {
		f.LocateFee = qty * 0.01
	}
	f.TotalFees = f.Commission + f.TAFFee + f.SECFee + f.LocateFee
	return f
}

// executeLocked places a trade. Market orders fill immediately; limit and
// stop-loss orders rest as an open order with a pending transaction.
// Caller holds s.mu.
func (s *Backend) executeLocked(p *domain.Portfolio, req domain.TradeRequest) (*domain.Transaction, error) {
	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:          s.id(),
		PortfolioID: p.ID,
		Symbol:      strings.ToUpper(req.Symbol),
		Exchange:    req.Exchange,
		Type:        req.Type,
		OrderType:   req.OrderType,
		Quantity:    float64(req.Quantity),
		Price:       req.Price,
		Status:      domain.TxPending,
		CreatedAt:   now,
	}

	if req.OrderType != domain.OrderMarket {
		price := req.Price
		if req.LimitPrice != nil {
			price = *req.LimitPrice
		} else if req.StopPrice != nil {
			price = *req.StopPrice
		}
		tx.Price = price
		tx.Fees = fees(tx.Type, tx.Quantity, price)
		tx.Fee = tx.Fees.TotalFees
		tx.TotalAmount = tx.Quantity * price
		txID := tx.ID
		o := &domain.Order{
			ID:            s.id(),
			PortfolioID:   p.ID,
			Symbol:        tx.Symbol,
			Exchange:      req.Exchange,
			Type:          req.Type,
			OrderType:     req.OrderType,
			Quantity:      tx.Quantity,
			LimitPrice:    req.LimitPrice,
			StopPrice:     req.StopPrice,
			Status:        domain.OrderOpen,
			CreatedAt:     now,
			TransactionID: &txID,
		}
		s.orders[o.ID] = o
		s.transactions[p.ID] = append(s.transactions[p.ID], tx)
		return tx, nil
	}

	if px, ok := s.prices[tx.Symbol]; ok {
		tx.Price = px
	}
	if err := s.fillLocked(p, tx); err != nil {
		return nil, err
	}
	s.transactions[p.ID] = append(s.transactions[p.ID], tx)
	return tx, nil
}

// fillLocked applies tx to cash and positions and marks it executed.
func (s *Backend) fillLocked(p *domain.Portfolio, tx *domain.Transaction) error {
	tx.Fees = fees(tx.Type, tx.Quantity, tx.Price)
	tx.Fee = tx.Fees.TotalFees
	gross := tx.Quantity * tx.Price
	tx.TotalAmount = gross

	short := tx.Type == domain.TypeShort || tx.Type == domain.TypeCover
	pos := s.findPosition(p.ID, tx.Symbol, short)

	switch tx.Type {
	case domain.TypeBuy:
		if p.CurrentCash < gross+tx.Fee {
			return errInsufficientCash
		}
		p.CurrentCash -= gross + tx.Fee
		s.addToPosition(p.ID, pos, tx, false)
	case domain.TypeShort:
		if p.CurrentCash < tx.Fee {
			return errInsufficientCash
		}
		p.CurrentCash += gross - tx.Fee
		s.addToPosition(p.ID, pos, tx, true)
	case domain.TypeSell:
		if pos == nil || pos.Quantity < tx.Quantity {
			return errInsufficientShares
		}
		p.CurrentCash += gross - tx.Fee
		pos.RealizedPL += (tx.Price - pos.AverageCost) * tx.Quantity
		s.reducePosition(p.ID, pos, tx.Quantity)
	case domain.TypeCover:
		if pos == nil || pos.Quantity < tx.Quantity {
			return errInsufficientShares
		}
		if p.CurrentCash < gross+tx.Fee {
			return errInsufficientCash
		}
		p.CurrentCash -= gross + tx.Fee
		pos.RealizedPL += (pos.AverageCost - tx.Price) * tx.Quantity
		s.reducePosition(p.ID, pos, tx.Quantity)
	}

	now := time.Now().UTC()
	tx.Status = domain.TxExecuted
	tx.ExecutedAt = &now
	p.LastTradeAt = &now
	return nil
}

func (s *Backend) findPosition(portfolioID int64, symbol string, short bool) *domain.Position {
	for _, pos := range s.positions[portfolioID] {
		if pos.Symbol == symbol && pos.IsShort == short {
			return pos
		}
	}
	return nil
}

func (s *Backend) addToPosition(portfolioID int64, pos *domain.Position, tx *domain.Transaction, short bool) {
	now := time.Now().UTC()
	if pos == nil {
		price := tx.Price
		s.positions[portfolioID] = append(s.positions[portfolioID], &domain.Position{
			ID:              s.id(),
			PortfolioID:     portfolioID,
			Symbol:          tx.Symbol,
			Exchange:        tx.Exchange,
			Quantity:        tx.Quantity,
			IsShort:         short,
			AverageCost:     tx.Price,
			CurrentPrice:    &price,
			LastPriceUpdate: &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		return
	}
	total := pos.Quantity + tx.Quantity
	pos.AverageCost = (pos.AverageCost*pos.Quantity + tx.Price*tx.Quantity) / total
	pos.Quantity = total
	price := tx.Price
	pos.CurrentPrice = &price
	pos.LastPriceUpdate = &now
	pos.UpdatedAt = now
}

func (s *Backend) reducePosition(portfolioID int64, pos *domain.Position, qty float64) {
	pos.Quantity -= qty
	pos.UpdatedAt = time.Now().UTC()
	if pos.Quantity > 0 {
		return
	}
	kept := s.positions[portfolioID][:0]
	for _, p := range s.positions[portfolioID] {
		if p != pos {
			kept = append(kept, p)
		}
	}
	s.positions[portfolioID] = kept
}

func (s *Backend) transactionLocked(portfolioID, id int64) *domain.Transaction {
	for _, tx := range s.transactions[portfolioID] {
		if tx.ID == id {
			return tx
		}
	}
	return nil
}

// FillOrder executes an open order at its limit or stop price. A fill the
// portfolio cannot afford fails the transaction instead.
func (s *Backend) FillOrder(orderID int64) error {
	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return errOrderNotFound
	}
	if o.Status != domain.OrderOpen {
		s.mu.Unlock()
		return errOrderNotOpen
	}
	p := s.portfolios[o.PortfolioID]
	tx := s.transactionLocked(o.PortfolioID, *o.TransactionID)
	fillErr := s.fillLocked(p, tx)
	now := time.Now().UTC()
	if fillErr != nil {
		tx.Status = domain.TxFailed
		tx.Notes = fillErr.Error()
		o.Status = domain.OrderCancelled
	} else {
		o.Status = domain.OrderFilled
		o.FilledAt = &now
	}
	s.mu.Unlock()
	s.publish(o.PortfolioID)
	return fillErr
}

// FailOrder rejects an open order and marks its transaction failed.
func (s *Backend) FailOrder(orderID int64) error {
	return s.closeOrder(orderID, domain.TxFailed, domain.OrderCancelled)
}

// ExpireOrder lets an open order lapse.
func (s *Backend) ExpireOrder(orderID int64) error {
	return s.closeOrder(orderID, domain.TxCancelled, domain.OrderExpired)
}

// FillDue fills every open order placed more than age ago and reports how
// many were attempted.
func (s *Backend) FillDue(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	s.mu.Lock()
	var due []int64
	for id, o := range s.orders {
		if o.Status == domain.OrderOpen && o.CreatedAt.Before(cutoff) {
			due = append(due, id)
		}
	}
	s.mu.Unlock()
	slices.Sort(due)
	for _, id := range due {
		if err := s.FillOrder(id); err != nil {
			s.logger.Info("order fill rejected", "order_id", id, "err", err)
		}
	}
	return len(due)
}

func (s *Backend) closeOrder(orderID int64, txStatus domain.TransactionStatus, status domain.OrderStatus) error {
	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return errOrderNotFound
	}
	if o.Status != domain.OrderOpen {
		s.mu.Unlock()
		return errOrderNotOpen
	}
	o.Status = status
	if tx := s.transactionLocked(o.PortfolioID, *o.TransactionID); tx != nil {
		tx.Status = txStatus
	}
	s.mu.Unlock()
	s.publish(o.PortfolioID)
	return nil
}

// OpenOrderIDs lists open orders of a portfolio in creation order.
func (s *Backend) OpenOrderIDs(portfolioID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, o := range s.openOrdersLocked(portfolioID) {
		ids = append(ids, o.ID)
	}
	return ids
}

func (s *Backend) openOrdersLocked(portfolioID int64) []domain.Order {
	out := []domain.Order{}
	for _, o := range s.orders {
		if o.PortfolioID == portfolioID && o.Status == domain.OrderOpen {
			out = append(out, *o)
		}
	}
	sortOrders(out)
	return out
}

// recentLocked returns transactions newest first.
func (s *Backend) recentLocked(portfolioID int64) []domain.Transaction {
	txs := s.transactions[portfolioID]
	out := make([]domain.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		out = append(out, *txs[i])
	}
	return out
}

func (s *Backend) summaryLocked(p *domain.Portfolio) domain.PortfolioSummary {
	sum := domain.PortfolioSummary{Cash: p.CurrentCash, Positions: []domain.PositionWithPL{}}
	var realized float64
	for _, pos := range s.positions[p.ID] {
		price := pos.AverageCost
		if pos.CurrentPrice != nil {
			price = *pos.CurrentPrice
		}
		cost := math.Abs(pos.Quantity * pos.AverageCost)
		value := math.Abs(pos.Quantity * price)
		unrealized := (price - pos.AverageCost) * pos.Quantity
		if pos.IsShort {
			unrealized = (pos.AverageCost - price) * pos.Quantity
			sum.EquityValue -= value
		} else {
			sum.EquityValue += value
		}
		var pct float64
		if cost > 0 {
			pct = unrealized / cost
		}
		realized += pos.RealizedPL
		sum.Positions = append(sum.Positions, domain.PositionWithPL{
			PositionID:             pos.ID,
			Symbol:                 pos.Symbol,
			Exchange:               pos.Exchange,
			Quantity:               pos.Quantity,
			IsShort:                pos.IsShort,
			AverageCost:            pos.AverageCost,
			CurrentPrice:           &price,
			TotalCost:              cost,
			CurrentValue:           &value,
			UnrealizedPL:           &unrealized,
			UnrealizedPLPercentage: &pct,
			RealizedPL:             pos.RealizedPL,
			BorrowCost:             pos.BorrowCost,
		})
	}
	sum.TotalValue = sum.Cash + sum.EquityValue
	sum.TotalPL = sum.TotalValue - p.InitialCash
	if p.InitialCash > 0 {
		sum.TotalPLPercentage = sum.TotalPL / p.InitialCash
	}
	sum.TodayRealizedPL = &realized
	return sum
}
