package sandbox

import (
	"cmp"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yourorg/wealthtracker/internal/domain"
)

var knownScanners = []string{
	"day-gainers", "hod-breakouts", "vwap-breakouts",
	"volume-spikes", "hod-approach", "vwap-approach",
}

func sortOrders(orders []domain.Order) {
	slices.SortFunc(orders, func(a, b domain.Order) int { return cmp.Compare(a.ID, b.ID) })
}

func (s *Backend) runScanner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !slices.Contains(knownScanners, id) {
		writeError(w, http.StatusNotFound, "Unknown scanner")
		return
	}
	body := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	s.scannerReqs[id] = body
	rows := s.scannerRows[id]
	s.mu.Unlock()
	if rows == nil {
		rows = []map[string]any{}
	}
	now := time.Now().UTC()
	writeJSON(w, http.StatusOK, map[string]any{
		"scanner":   id,
		"sorted_by": "",
		"results":   rows,
		"asOf":      now,
	})
}

// ownedPortfolio resolves the {id} URL param to a portfolio of the caller.
// Caller holds s.mu.
func (s *Backend) ownedPortfolio(w http.ResponseWriter, r *http.Request) *domain.Portfolio {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return nil
	}
	p, ok := s.portfolios[id]
	if !ok || p.UserID != userIDFromCtx(r.Context()) {
		writeError(w, http.StatusNotFound, "Portfolio not found")
		return nil
	}
	return p
}

func (s *Backend) listPortfolios(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromCtx(r.Context())
	s.mu.Lock()
	out := []domain.Portfolio{}
	for _, p := range s.portfolios {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b domain.Portfolio) int { return cmp.Compare(a.ID, b.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Backend) createPortfolio(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.InitialCash <= 0 {
		writeError(w, http.StatusBadRequest, "Initial cash must be positive")
		return
	}
	s.mu.Lock()
	p := *s.addPortfolio(userIDFromCtx(r.Context()), req.Name, req.InitialCash)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Backend) getPortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.ownedPortfolio(w, r)
	if p == nil {
		s.mu.Unlock()
		return
	}
	details := domain.PortfolioDetails{Portfolio: *p, Positions: []domain.Position{}}
	for _, pos := range s.positions[p.ID] {
		details.Positions = append(details.Positions, *pos)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, details)
}

func (s *Backend) getSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.ownedPortfolio(w, r)
	if p == nil {
		s.mu.Unlock()
		return
	}
	sum := s.summaryLocked(p)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sum)
}

func (s *Backend) executeTrade(w http.ResponseWriter, r *http.Request) {
	var req domain.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateTrade(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	p := s.ownedPortfolio(w, r)
	if p == nil {
		s.mu.Unlock()
		return
	}
	tx, err := s.executeLocked(p, req)
	s.mu.Unlock()
	if err != nil {
		code := http.StatusBadRequest
		if !errors.Is(err, errInsufficientCash) && !errors.Is(err, errInsufficientShares) {
			code = http.StatusInternalServerError
		}
		writeError(w, code, err.Error())
		return
	}
	s.publish(p.ID)
	writeJSON(w, http.StatusOK, tx)
}

func (s *Backend) listTransactions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if size <= 0 {
		size = 50
	}
	s.mu.Lock()
	p := s.ownedPortfolio(w, r)
	if p == nil {
		s.mu.Unlock()
		return
	}
	all := s.recentLocked(p.ID)
	s.mu.Unlock()

	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))
	writeJSON(w, http.StatusOK, all[start:end])
}

func (s *Backend) listOpenOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.ownedPortfolio(w, r)
	if p == nil {
		s.mu.Unlock()
		return
	}
	out := s.openOrdersLocked(p.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Backend) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	s.mu.Lock()
	o, ok := s.orders[id]
	owned := ok && s.portfolios[o.PortfolioID].UserID == userIDFromCtx(r.Context())
	s.mu.Unlock()
	if !owned {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if err := s.closeOrder(id, domain.TxCancelled, domain.OrderCancelled); err != nil {
		writeError(w, http.StatusBadRequest, "Order cannot be cancelled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
