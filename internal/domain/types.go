package domain

import (
	"strings"
	"time"
)

type TransactionType string

const (
	TypeBuy   TransactionType = "buy"
	TypeSell  TransactionType = "sell"
	TypeShort TransactionType = "short"
	TypeCover TransactionType = "cover"
)

type OrderType string

const (
	OrderMarket   OrderType = "market"
	OrderLimit    OrderType = "limit"
	OrderStopLoss OrderType = "stopLoss"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxExecuted  TransactionStatus = "executed"
	TxCancelled TransactionStatus = "cancelled"
	TxFailed    TransactionStatus = "failed"
)

type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// ParseTransactionType accepts the wire names case-insensitively.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(strings.ToLower(s)) {
	case TypeBuy:
		return TypeBuy, true
	case TypeSell:
		return TypeSell, true
	case TypeShort:
		return TypeShort, true
	case TypeCover:
		return TypeCover, true
	}
	return "", false
}

func ParseOrderType(s string) (OrderType, bool) {
	switch strings.ToLower(s) {
	case "market":
		return OrderMarket, true
	case "limit":
		return OrderLimit, true
	case "stoploss", "stop-loss", "stop_loss", "stop":
		return OrderStopLoss, true
	}
	return "", false
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type Portfolio struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Name        string     `json:"name"`
	InitialCash float64    `json:"initialCash"`
	CurrentCash float64    `json:"currentCash"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastTradeAt *time.Time `json:"lastTradeAt,omitempty"`
}

type PortfolioDetails struct {
	Portfolio Portfolio  `json:"portfolio"`
	Positions []Position `json:"positions"`
}

type Position struct {
	ID              int64      `json:"id"`
	PortfolioID     int64      `json:"portfolioId"`
	Symbol          string     `json:"symbol"`
	Exchange        string     `json:"exchange,omitempty"`
	Quantity        float64    `json:"quantity"`
	IsShort         bool       `json:"isShort"`
	AverageCost     float64    `json:"averageCost"`
	CurrentPrice    *float64   `json:"currentPrice,omitempty"`
	LastPriceUpdate *time.Time `json:"lastPriceUpdate,omitempty"`
	RealizedPL      float64    `json:"realizedPL"`
	BorrowCost      float64    `json:"borrowCost"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PositionWithPL is a position enriched with derived profit/loss figures.
// The percentage is a ratio (0.1 == 10%).
type PositionWithPL struct {
	PositionID             int64    `json:"positionId"`
	Symbol                 string   `json:"symbol"`
	Exchange               string   `json:"exchange,omitempty"`
	Quantity               float64  `json:"quantity"`
	IsShort                bool     `json:"isShort"`
	AverageCost            float64  `json:"averageCost"`
	CurrentPrice           *float64 `json:"currentPrice,omitempty"`
	TotalCost              float64  `json:"totalCost"`
	CurrentValue           *float64 `json:"currentValue,omitempty"`
	UnrealizedPL           *float64 `json:"unrealizedPL,omitempty"`
	UnrealizedPLPercentage *float64 `json:"unrealizedPLPercentage,omitempty"`
	RealizedPL             float64  `json:"realizedPL"`
	BorrowCost             float64  `json:"borrowCost"`
}

type PortfolioSummary struct {
	TotalValue        float64          `json:"totalValue"`
	Cash              float64          `json:"cash"`
	EquityValue       float64          `json:"equityValue"`
	TotalPL           float64          `json:"totalPL"`
	TotalPLPercentage float64          `json:"totalPLPercentage"`
	TodayRealizedPL   *float64         `json:"todayRealizedPL,omitempty"`
	Positions         []PositionWithPL `json:"positions"`
}

type FeeBreakdown struct {
	Commission float64 `json:"commission"`
	TAFFee     float64 `json:"tafFee"`
	SECFee     float64 `json:"secFee"`
	LocateFee  float64 `json:"locateFee"`
	TotalFees  float64 `json:"totalFees"`
}

type Transaction struct {
	ID          int64             `json:"id"`
	PortfolioID int64             `json:"portfolioId"`
	Symbol      string            `json:"symbol"`
	Exchange    string            `json:"exchange,omitempty"`
	Type        TransactionType   `json:"type"`
	OrderType   OrderType         `json:"orderType"`
	Quantity    float64           `json:"quantity"`
	Price       float64           `json:"price"`
	Fee         float64           `json:"fee"`
	TotalAmount float64           `json:"totalAmount"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExecutedAt  *time.Time        `json:"executedAt,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Fees        FeeBreakdown      `json:"fees"`
}

type Order struct {
	ID            int64           `json:"id"`
	PortfolioID   int64           `json:"portfolioId"`
	Symbol        string          `json:"symbol"`
	Exchange      string          `json:"exchange,omitempty"`
	Type          TransactionType `json:"type"`
	OrderType     OrderType       `json:"orderType"`
	Quantity      float64         `json:"quantity"`
	LimitPrice    *float64        `json:"limitPrice,omitempty"`
	StopPrice     *float64        `json:"stopPrice,omitempty"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	FilledAt      *time.Time      `json:"filledAt,omitempty"`
	TransactionID *int64          `json:"transactionId,omitempty"`
}

type TradeRequest struct {
	Symbol     string          `json:"symbol"`
	Exchange   string          `json:"exchange,omitempty"`
	Type       TransactionType `json:"type"`
	Quantity   int64           `json:"quantity"`
	Price      float64         `json:"price"`
	OrderType  OrderType       `json:"orderType"`
	LimitPrice *float64        `json:"limitPrice,omitempty"`
	StopPrice  *float64        `json:"stopPrice,omitempty"`
}

type CreatePortfolioRequest struct {
	Name        string  `json:"name"`
	InitialCash float64 `json:"initialCash"`
}
