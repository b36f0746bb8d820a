// Package sandbox runs an in-memory WealthTracker backend, either over
// httptest so client packages can be exercised end to end, or standalone as
// a local sandbox. It issues real JWTs, keeps bcrypt-hashed refresh tokens,
// simulates order execution and pushes portfolio snapshots over a websocket.
package sandbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/wealthtracker/internal/domain"
)

// GoodCode is the only authorization code the Google callback accepts.
const GoodCode = "good-code"

const demoStartingCash = 100000

// Options configures a Backend. Zero values pick test-friendly defaults.
type Options struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Backend holds the simulated accounts, portfolios and order book behind
// the HTTP API.
type Backend struct {
	tokens  *tokenService
	hub     *Hub
	logger  *slog.Logger
	origins []string

	mu           sync.Mutex
	gen          int
	refreshCalls int
	failRefresh  bool

	users        map[int64]*domain.User
	refreshHash  map[int64][]byte
	portfolios   map[int64]*domain.Portfolio
	positions    map[int64][]*domain.Position
	transactions map[int64][]*domain.Transaction
	orders       map[int64]*domain.Order
	prices       map[string]float64
	scannerRows  map[string][]map[string]any
	scannerReqs  map[string]map[string]any
	nextID       int64

	demoUserID      int64
	demoPortfolioID int64
}

func NewBackend(opts Options) *Backend {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "sandbox-secret"
	}
	if opts.AccessTokenTTL <= 0 {
		opts.AccessTokenTTL = 15 * time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Backend{
		tokens:       newTokenService(opts.JWTSecret, opts.AccessTokenTTL),
		logger:       opts.Logger,
		origins:      opts.AllowedOrigins,
		users:        make(map[int64]*domain.User),
		refreshHash:  make(map[int64][]byte),
		portfolios:   make(map[int64]*domain.Portfolio),
		positions:    make(map[int64][]*domain.Position),
		transactions: make(map[int64][]*domain.Transaction),
		orders:       make(map[int64]*domain.Order),
		prices:       make(map[string]float64),
		scannerRows:  make(map[string][]map[string]any),
		scannerReqs:  make(map[string]map[string]any),
	}
	s.hub = NewHub(s.snapshotsFor, s.logger)

	demo := s.addUser("Demo User", "demo@wealthtracker.local")
	s.demoUserID = demo.ID
	s.demoPortfolioID = s.addPortfolio(demo.ID, "Demo Portfolio", demoStartingCash).ID
	return s
}

// Handler serves the API under /api.
func (s *Backend) Handler() http.Handler { return s.routes() }

// Run pumps the snapshot hub until ctx is done.
func (s *Backend) Run(ctx context.Context) { s.hub.Run(ctx) }

// Server is a Backend listening on an httptest server.
type Server struct {
	*httptest.Server
	*Backend
}

// New starts a server and registers its shutdown with tb.
func New(tb testing.TB) *Server {
	tb.Helper()
	b := NewBackend(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	s := &Server{Server: httptest.NewServer(b.Handler()), Backend: b}
	tb.Cleanup(func() {
		s.Server.CloseClientConnections()
		s.Server.Close()
		cancel()
	})
	return s
}

// APIURL is the base URL clients should be configured with.
func (s *Server) APIURL() string { return s.URL + "/api" }

// StreamURL is the websocket endpoint for portfolio snapshots.
func (s *Server) StreamURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/api/ws"
}

func (s *Backend) DemoUser() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[s.demoUserID]
}

func (s *Backend) DemoPortfolioID() int64 { return s.demoPortfolioID }

// ExpireAccessTokens revokes every access token issued so far. Refresh
// tokens stay valid.
func (s *Backend) ExpireAccessTokens() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// RefreshCalls counts requests to the refresh endpoint.
func (s *Backend) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// SetRefreshFailing makes the refresh endpoint answer 401.
func (s *Backend) SetRefreshFailing(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// SetScannerRows sets the rows returned by a scanner endpoint.
func (s *Backend) SetScannerRows(id string, rows []map[string]any) {
	s.mu.Lock()
	s.scannerRows[id] = rows
	s.mu.Unlock()
}

// ScannerRequest returns the last body posted to a scanner endpoint.
func (s *Backend) ScannerRequest(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scannerReqs[id]
}

// SetPrice overrides the fill price used for market orders on symbol.
func (s *Backend) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[strings.ToUpper(symbol)] = price
	s.mu.Unlock()
}

func (s *Backend) generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Backend) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Backend) addUser(name, email string) *domain.User {
	u := &domain.User{ID: s.id(), Name: name, Email: email}
	s.users[u.ID] = u
	return u
}

func (s *Backend) addPortfolio(userID int64, name string, cash float64) *domain.Portfolio {
	p := &domain.Portfolio{
		ID:          s.id(),
		UserID:      userID,
		Name:        name,
		InitialCash: cash,
		CurrentCash: cash,
		CreatedAt:   time.Now().UTC(),
	}
	s.portfolios[p.ID] = p
	return p
}
