package sandbox

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/yourorg/wealthtracker/internal/domain"
)

const snapshotTransactions = 25

type snapshot struct {
	Type         string               `json:"type"`
	PortfolioID  int64                `json:"portfolioId"`
	Transactions []domain.Transaction `json:"transactions,omitempty"`
	Orders       []domain.Order       `json:"orders,omitempty"`
}

type subscription struct {
	client      *wsClient
	portfolioID int64
}

type broadcast struct {
	portfolioID int64
	messages    [][]byte
}

// Hub fans portfolio snapshots out to subscribed websocket clients. All
// bookkeeping happens on the Run goroutine. register is unbuffered so a
// client is known before any of its subscriptions arrive.
type Hub struct {
	clients map[*wsClient]bool
	subs    map[int64]map[*wsClient]bool

	register   chan *wsClient
	unregister chan *wsClient
	subscribe  chan subscription
	publish    chan broadcast

	snapshots func(portfolioID int64) [][]byte
	logger    *slog.Logger
}

func NewHub(snapshots func(int64) [][]byte, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		subs:       make(map[int64]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient, 64),
		subscribe:  make(chan subscription, 64),
		publish:    make(chan broadcast, 64),
		snapshots:  snapshots,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for id, clients := range h.subs {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.subs, id)
					}
				}
				close(client.send)
			}
		case sub := <-h.subscribe:
			if !h.clients[sub.client] {
				continue
			}
			if _, ok := h.subs[sub.portfolioID]; !ok {
				h.subs[sub.portfolioID] = make(map[*wsClient]bool)
			}
			h.subs[sub.portfolioID][sub.client] = true
			for _, msg := range h.snapshots(sub.portfolioID) {
				h.send(sub.client, msg)
			}
		case b := <-h.publish:
			for client := range h.subs[b.portfolioID] {
				for _, msg := range b.messages {
					h.send(client, msg)
				}
			}
		}
	}
}

func (h *Hub) send(client *wsClient, msg []byte) {
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("dropping snapshot for slow client")
	}
}

// publish pushes the current snapshots of a portfolio to its subscribers.
// Must be called without s.mu held.
func (s *Backend) publish(portfolioID int64) {
	s.hub.publish <- broadcast{portfolioID: portfolioID, messages: s.snapshotsFor(portfolioID)}
}

func (s *Backend) snapshotsFor(portfolioID int64) [][]byte {
	s.mu.Lock()
	txs := s.recentLocked(portfolioID)
	if len(txs) > snapshotTransactions {
		txs = txs[:snapshotTransactions]
	}
	orders := s.openOrdersLocked(portfolioID)
	s.mu.Unlock()

	txMsg, err := json.Marshal(snapshot{Type: "transactions", PortfolioID: portfolioID, Transactions: txs})
	if err != nil {
		s.logger.Error("marshal snapshot", "err", err)
		return nil
	}
	orderMsg, err := json.Marshal(snapshot{Type: "orders", PortfolioID: portfolioID, Orders: orders})
	if err != nil {
		s.logger.Error("marshal snapshot", "err", err)
		return nil
	}
	return [][]byte{txMsg, orderMsg}
}
