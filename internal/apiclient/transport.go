package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yourorg/wealthtracker/internal/storage"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type contextKey string

const contextKeySkipRefresh contextKey = "skipRefresh"

// WithoutRefresh marks requests made with ctx so a 401 ends the session
// instead of attempting a token refresh.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeySkipRefresh, true)
}

func skipRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(contextKeySkipRefresh).(bool)
	return v
}

var errNoRefreshToken = errors.New("no refresh token stored")

type authTransport struct {
	base      http.RoundTripper
	store     storage.Store
	refresher Refresher
	onExpired func()
	shared    bool
	timeout   time.Duration
	group     singleflight.Group
	logger    *slog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	first := req.Clone(ctx)
	if err := t.authorize(ctx, first, ""); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	discard(resp)

	if isRefreshRequest(req) || skipRefresh(ctx) {
		t.expire(ctx)
		return nil, ErrSessionExpired
	}

	token, err := t.refresh(ctx)
	if err != nil {
		if canceled(ctx, err) {
			return nil, err
		}
		t.logger.Warn("token refresh failed", "err", err)
		t.expire(ctx)
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	replay, err := cloneWithBody(req)
	if err != nil {
		return nil, err
	}
	if err := t.authorize(ctx, replay, token); err != nil {
		return nil, err
	}
	resp, err = t.base.RoundTrip(replay)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		t.expire(ctx)
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// authorize sets the bearer header, reading the token from storage when
// none is given.
func (t *authTransport) authorize(ctx context.Context, req *http.Request, token string) error {
	if token == "" {
		stored, ok, err := t.store.Get(ctx, storage.KeyAccessToken)
		if err != nil {
			return fmt.Errorf("read access token: %w", err)
		}
		if !ok {
			return nil
		}
		token = stored
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (t *authTransport) refresh(ctx context.Context) (string, error) {
	refreshToken, ok, err := t.store.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if !ok || refreshToken == "" {
		return "", errNoRefreshToken
	}

	do := func(ctx context.Context) (string, error) {
		token, err := t.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			return "", err
		}
		if err := t.store.Set(ctx, storage.KeyAccessToken, token); err != nil {
			return "", fmt.Errorf("store access token: %w", err)
		}
		return token, nil
	}
	if !t.shared {
		return do(ctx)
	}

	// The shared call outlives any single waiter, so it runs detached from
	// the caller's cancellation and bounded by the client timeout.
	ch := t.group.DoChan(refreshToken, func() (any, error) {
		sharedCtx := context.WithoutCancel(ctx)
		if t.timeout > 0 {
			var cancel context.CancelFunc
			sharedCtx, cancel = context.WithTimeout(sharedCtx, t.timeout)
			defer cancel()
		}
		return do(sharedCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// canceled reports whether a refresh failed because the caller gave up
// rather than because the refresh token was rejected.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (t *authTransport) expire(ctx context.Context) {
	err := t.store.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser)
	if err != nil {
		t.logger.Error("failed to clear session", "err", err)
	}
	if t.onExpired != nil {
		t.onExpired()
	}
}

func isRefreshRequest(req *http.Request) bool {
	return strings.HasSuffix(req.URL.Path, refreshPath)
}

func cloneWithBody(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("%s %s: request body cannot be replayed", req.Method, req.URL.Path)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
