package sandbox

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyUserID contextKey = "userID"

func (s *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, gen, err := s.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil || gen < s.generation() {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromCtx(ctx context.Context) int64 {
	v, _ := ctx.Value(contextKeyUserID).(int64)
	return v
}
