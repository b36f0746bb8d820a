package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/apiclient"
	"github.com/yourorg/wealthtracker/internal/auth"
	"github.com/yourorg/wealthtracker/internal/config"
	"github.com/yourorg/wealthtracker/internal/notify"
	redisRepo "github.com/yourorg/wealthtracker/internal/repository/redis"
	sqliteRepo "github.com/yourorg/wealthtracker/internal/repository/sqlite"
	"github.com/yourorg/wealthtracker/internal/scanner"
	"github.com/yourorg/wealthtracker/internal/storage"
	"github.com/yourorg/wealthtracker/internal/trading"
)

const quoteMaxAge = 15 * time.Minute

// env is what main hands every subcommand.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

// app is the wired client: one durable store, one authenticated API client
// and the services built on it.
type app struct {
	*env
	store      storage.Store
	closeStore func() error

	api     *apiclient.Client
	session *auth.Manager
	trading *trading.Service
	scanner *scanner.Service
	toasts  *notify.Service
	quotes  *storage.Quotes

	expired chan struct{}
}

func envFrom(args []interface{}) *env {
	for _, a := range args {
		if e, ok := a.(*env); ok {
			return e
		}
	}
	panic("wealthtracker: command executed without env")
}

func newApp(ctx context.Context, e *env) (*app, error) {
	store, closeStore, err := openStore(ctx, e.cfg.StorageURL)
	if err != nil {
		return nil, err
	}
	a := &app{env: e, store: store, closeStore: closeStore, expired: make(chan struct{}, 1)}

	refresher := apiclient.New(e.cfg.APIBaseURL,
		apiclient.WithTimeout(e.cfg.HTTPTimeout),
		apiclient.WithLogger(e.logger))
	opts := []apiclient.Option{
		apiclient.WithTimeout(e.cfg.HTTPTimeout),
		apiclient.WithLogger(e.logger),
		apiclient.WithSessionExpiredHandler(a.onSessionExpired),
	}
	if e.cfg.SharedTokenRefresh {
		opts = append(opts, apiclient.WithSharedRefresh())
	}
	a.api = apiclient.NewAuthenticated(e.cfg.APIBaseURL, store, refresher, opts...)

	a.session = auth.NewManager(store, a.api, e.logger)
	if err := a.session.Restore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	a.trading = trading.NewService(a.api, e.logger)
	a.scanner = scanner.NewService(a.api, e.logger)
	a.quotes = storage.NewQuotes(store, quoteMaxAge)
	a.toasts = notify.NewService(store, notify.BellPlayer{W: e.errOut}, e.logger)
	if err := a.toasts.LoadSoundPreference(ctx); err != nil {
		e.logger.Warn("could not load sound preference", "err", err)
	}
	return a, nil
}

func (a *app) onSessionExpired() {
	a.logger.Warn("session expired")
	if a.session != nil {
		a.session.Expired()
	}
	select {
	case a.expired <- struct{}{}:
	default:
	}
}

func (a *app) Close() {
	if a.toasts != nil {
		a.toasts.Close()
	}
	if err := a.closeStore(); err != nil {
		a.logger.Error("close store", "err", err)
	}
}

// requireSession fails fast when nobody is signed in.
func (a *app) requireSession() error {
	if !a.session.Read().IsAuthenticated {
		return fmt.Errorf("not signed in, run login first")
	}
	return nil
}

// openStore picks the durable store from a URL: sqlite://path,
// redis://host:port/db or memory:.
func openStore(ctx context.Context, rawURL string) (storage.Store, func() error, error) {
	switch {
	case rawURL == "memory:" || rawURL == "memory://":
		return storage.NewMemory(), func() error { return nil }, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		path := strings.TrimPrefix(rawURL, "sqlite://")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		s, err := sqliteRepo.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case strings.HasPrefix(rawURL, "redis://"), strings.HasPrefix(rawURL, "rediss://"):
		s, err := redisRepo.Open(ctx, rawURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported STORAGE_URL %q", rawURL)
}

// fail prints the backend's message for err, or err itself.
func (e *env) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(e.errOut, "Error: %s\n", apiclient.ErrorMessage(err, err.Error()))
	return subcommands.ExitFailure
}

// withApp wires the client, runs fn and tears everything down.
func withApp(ctx context.Context, args []interface{}, fn func(*app) error) subcommands.ExitStatus {
	e := envFrom(args)
	a, err := newApp(ctx, e)
	if err != nil {
		return e.fail(err)
	}
	defer a.Close()
	if err := fn(a); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(e.errOut, err)
			return subcommands.ExitUsageError
		}
		return e.fail(err)
	}
	return subcommands.ExitSuccess
}

var errUsage = errors.New("usage error")

func usagef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}
