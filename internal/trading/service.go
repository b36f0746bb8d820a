// Package trading covers everything behind the trading panel: portfolio and
// order endpoints, the fee estimator and order ticket, and the poller that
// turns order and transaction changes into notifications.
package trading

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/yourorg/wealthtracker/internal/domain"
)

const (
	DefaultTransactionsPageSize = 50
	notifierPageSize            = 25
)

type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

type Service struct {
	api    API
	logger *slog.Logger
}

func NewService(api API, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

func portfolioPath(id int64) string {
	return "/simulation/portfolios/" + strconv.FormatInt(id, 10)
}

func (s *Service) CreatePortfolio(ctx context.Context, req domain.CreatePortfolioRequest) (*domain.Portfolio, error) {
	var p domain.Portfolio
	if err := s.api.Post(ctx, "/simulation/portfolios", req, &p); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	s.logger.Info("portfolio created", "portfolio_id", p.ID, "name", p.Name)
	return &p, nil
}

func (s *Service) Portfolios(ctx context.Context) ([]domain.Portfolio, error) {
	var out []domain.Portfolio
	if err := s.api.Get(ctx, "/simulation/portfolios", nil, &out); err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	return out, nil
}

func (s *Service) Portfolio(ctx context.Context, id int64) (*domain.PortfolioDetails, error) {
	var out domain.PortfolioDetails
	if err := s.api.Get(ctx, portfolioPath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get portfolio %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) Summary(ctx context.Context, id int64) (*domain.PortfolioSummary, error) {
	var out domain.PortfolioSummary
	if err := s.api.Get(ctx, portfolioPath(id)+"/summary", nil, &out); err != nil {
		return nil, fmt.Errorf("get summary %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) ExecuteTrade(ctx context.Context, portfolioID int64, req domain.TradeRequest) (*domain.Transaction, error) {
	if err := validateTradeRequest(&req); err != nil {
		return nil, err
	}
	var tx domain.Transaction
	if err := s.api.Post(ctx, portfolioPath(portfolioID)+"/trades", req, &tx); err != nil {
		return nil, fmt.Errorf("execute trade: %w", err)
	}
	s.logger.Info("trade submitted",
		"portfolio_id", portfolioID,
		"symbol", req.Symbol,
		"type", req.Type,
		"order_type", req.OrderType,
		"quantity", req.Quantity,
		"status", tx.Status,
	)
	return &tx, nil
}

// Transactions returns one page of history, newest first. Non-positive
// page or size fall back to 1 and 50.
func (s *Service) Transactions(ctx context.Context, portfolioID int64, page, pageSize int) ([]domain.Transaction, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultTransactionsPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var out []domain.Transaction
	if err := s.api.Get(ctx, portfolioPath(portfolioID)+"/transactions", q, &out); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *Service) OpenOrders(ctx context.Context, portfolioID int64) ([]domain.Order, error) {
	var out []domain.Order
	if err := s.api.Get(ctx, portfolioPath(portfolioID)+"/orders", nil, &out); err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	return out, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	var out struct {
		Success bool `json:"success"`
	}
	if err := s.api.Delete(ctx, "/simulation/orders/"+strconv.FormatInt(orderID, 10), &out); err != nil {
		return fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	s.logger.Info("order cancelled", "order_id", orderID)
	return nil
}
