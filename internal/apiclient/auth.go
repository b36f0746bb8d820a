package apiclient

import (
	"context"

	"github.com/yourorg/wealthtracker/internal/domain"
)

const (
	googleCallbackPath = "/auth/google/callback"
	demoLoginPath      = "/auth/demo/login"
	refreshPath        = "/auth/refresh"
	logoutPath         = "/auth/logout"
)

type loginRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// GoogleCallback exchanges an OAuth authorization code for a session.
func (c *Client) GoogleCallback(ctx context.Context, code, redirectURI string) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.Post(ctx, googleCallbackPath, loginRequest{Code: code, RedirectURI: redirectURI}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DemoLogin(ctx context.Context) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.Post(ctx, demoLoginPath, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp domain.RefreshResponse
	if err := c.Post(ctx, refreshPath, refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.Post(ctx, logoutPath, refreshRequest{RefreshToken: refreshToken}, nil)
}
