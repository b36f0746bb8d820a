package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type callbackResult struct {
	route string
	err   error
}

// CallbackServer receives the OAuth redirect on the loopback address named
// by the redirect URI.
type CallbackServer struct {
	flow   *OAuthFlow
	addr   string
	path   string
	srv    *http.Server
	done   chan callbackResult
	logger *slog.Logger
}

func NewCallbackServer(flow *OAuthFlow, logger *slog.Logger) (*CallbackServer, error) {
	u, err := url.Parse(flow.RedirectURI())
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redirect uri %q has no host", flow.RedirectURI())
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	s := &CallbackServer{
		flow:   flow,
		addr:   u.Host,
		path:   path,
		done:   make(chan callbackResult, 1),
		logger: logger,
	}
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *CallbackServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(s.path, s.handleCallback)
	if s.path != RouteHome {
		r.Get(RouteHome, func(w http.ResponseWriter, r *http.Request) {
			writeText(w, "Signed in. You can close this window and return to the terminal.")
		})
	}
	r.Get(RouteLogin, func(w http.ResponseWriter, r *http.Request) {
		writeText(w, "Sign-in did not complete. Return to the terminal and run login again.")
	})
	return r
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	route, err := s.flow.Complete(r.Context(), CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	})
	if err != nil {
		s.logger.Warn("oauth callback rejected", "err", err)
	}
	select {
	case s.done <- callbackResult{route: route, err: err}:
	default:
	}
	http.Redirect(w, r, route, http.StatusFound)
}

// Start listens on the redirect address and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server error", "err", err)
		}
	}()
	return nil
}

// Wait blocks until the first callback has been handled and returns the
// route it resolved to.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.done:
		return res.route, res.err
	case <-ctx.Done():
		return RouteLogin, ctx.Err()
	}
}

func (s *CallbackServer) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeText(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg + "\n"))
}
