package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/yourorg/wealthtracker/internal/storage"
)

const (
	RouteHome  = "/"
	RouteLogin = "/login"
)

var ErrOAuthNotConfigured = errors.New("google oauth is not configured")

type OAuthConfig struct {
	ClientID     string
	RedirectURI  string
	AuthEndpoint string
}

type CallbackParams struct {
	Code  string
	State string
	Error string
}

// OAuthFlow guards the authorization-code exchange with a single-use state
// token kept in session storage.
type OAuthFlow struct {
	cfg     OAuthConfig
	session storage.Store
	manager *Manager
	logger  *slog.Logger
}

func NewOAuthFlow(cfg OAuthConfig, session storage.Store, manager *Manager, logger *slog.Logger) *OAuthFlow {
	return &OAuthFlow{cfg: cfg, session: session, manager: manager, logger: logger}
}

func (f *OAuthFlow) RedirectURI() string {
	return f.cfg.RedirectURI
}

// Begin stores a fresh state token and returns the provider URL to open.
func (f *OAuthFlow) Begin(ctx context.Context) (string, error) {
	if f.cfg.ClientID == "" || f.cfg.RedirectURI == "" {
		return "", ErrOAuthNotConfigured
	}
	state := uuid.NewString()
	if err := f.session.Set(ctx, storage.KeyOAuthState, state); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}

	q := url.Values{}
	q.Set("client_id", f.cfg.ClientID)
	q.Set("redirect_uri", f.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return f.cfg.AuthEndpoint + "?" + q.Encode(), nil
}

// Complete validates the callback and exchanges the code. It returns the
// route to navigate to; the error explains a RouteLogin outcome.
func (f *OAuthFlow) Complete(ctx context.Context, p CallbackParams) (string, error) {
	stored, ok, err := f.session.Get(ctx, storage.KeyOAuthState)
	if err != nil {
		return RouteLogin, fmt.Errorf("read oauth state: %w", err)
	}
	if err := f.session.Delete(ctx, storage.KeyOAuthState); err != nil {
		f.logger.Warn("failed to clear oauth state", "err", err)
	}

	if p.State == "" || !ok || stored == "" || p.State != stored {
		return RouteLogin, errors.New("invalid oauth state")
	}
	if p.Error != "" {
		return RouteLogin, fmt.Errorf("oauth provider error: %s", p.Error)
	}
	if p.Code == "" {
		return RouteLogin, errors.New("missing authorization code")
	}
	if err := f.manager.LoginWithCode(ctx, p.Code, f.cfg.RedirectURI); err != nil {
		return RouteLogin, fmt.Errorf("exchange code: %w", err)
	}
	return RouteHome, nil
}
