// Package apiclient is the HTTP layer in front of the REST backend: a plain
// client for the auth endpoints and a bearer-token client that refreshes
// the access token once on 401 and replays the request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourorg/wealthtracker/internal/storage"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type options struct {
	timeout       time.Duration
	logger        *slog.Logger
	transport     http.RoundTripper
	onExpired     func()
	sharedRefresh bool
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTransport sets the underlying round tripper (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithSessionExpiredHandler registers the hook run after the session has
// been cleared because a 401 could not be recovered. It typically routes
// the user to the login screen.
func WithSessionExpiredHandler(f func()) Option {
	return func(o *options) { o.onExpired = f }
}

// WithSharedRefresh makes concurrent 401s share one refresh call instead
// of each refreshing on its own.
func WithSharedRefresh() Option {
	return func(o *options) { o.sharedRefresh = true }
}

func buildOptions(opts []Option) options {
	o := options{
		timeout:   15 * time.Second,
		logger:    slog.Default(),
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns a client without credentials, used for the auth endpoints.
func New(baseURL string, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: o.timeout, Transport: o.transport},
		logger:     o.logger,
	}
}

// NewAuthenticated returns a client that sends the stored access token and
// recovers from 401 responses through refresher.
func NewAuthenticated(baseURL string, store storage.Store, refresher Refresher, opts ...Option) *Client {
	o := buildOptions(opts)
	rt := &authTransport{
		base:      o.transport,
		store:     store,
		refresher: refresher,
		onExpired: o.onExpired,
		shared:    o.sharedRefresh,
		timeout:   o.timeout,
		logger:    o.logger,
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: o.timeout, Transport: rt},
		logger:     o.logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
