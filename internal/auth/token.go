package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of an access token. The signature is
// not checked; the server remains the authority on validity.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// AccessTokenExpiry reports when the held access token expires.
func (m *Manager) AccessTokenExpiry() (time.Time, error) {
	s := m.Read()
	if s.AccessToken == "" {
		return time.Time{}, ErrNotAuthenticated
	}
	return TokenExpiry(s.AccessToken)
}
