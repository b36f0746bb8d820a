package sandbox

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenService struct {
	secret []byte
	ttl    time.Duration
}

func newTokenService(secret string, ttl time.Duration) *tokenService {
	return &tokenService{secret: []byte(secret), ttl: ttl}
}

// claims carries the user id as the subject plus the key generation the
// token was issued under; bumping the generation revokes older tokens.
type claims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

func (s *tokenService) Sign(userID int64, generation int) (string, error) {
	now := time.Now()
	c := claims{
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

func (s *tokenService) Parse(tokenStr string) (int64, int, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, 0, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, 0, fmt.Errorf("invalid token")
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, c.Generation, nil
}
