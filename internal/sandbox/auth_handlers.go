package sandbox

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/wealthtracker/internal/domain"
)

type googleCallbackRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Backend) googleCallback(w http.ResponseWriter, r *http.Request) {
	var req googleCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code != GoodCode || req.RedirectURI == "" {
		writeError(w, http.StatusBadRequest, "Failed to exchange authorization code")
		return
	}
	s.mu.Lock()
	var user *domain.User
	for _, u := range s.users {
		if u.Email == "google@wealthtracker.local" {
			user = u
		}
	}
	if user == nil {
		user = s.addUser("Google User", "google@wealthtracker.local")
		s.addPortfolio(user.ID, "My Portfolio", demoStartingCash)
	}
	s.mu.Unlock()
	s.issue(w, *user)
}

func (s *Backend) demoLogin(w http.ResponseWriter, r *http.Request) {
	s.issue(w, s.DemoUser())
}

// issue signs an access token and stores only a hash of the new refresh
// token, replacing any earlier one for the user.
func (s *Backend) issue(w http.ResponseWriter, user domain.User) {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	access, err := s.tokens.Sign(user.ID, gen)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	refresh := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(refresh), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	s.mu.Lock()
	s.refreshHash[user.ID] = hash
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, domain.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	})
}

func (s *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.refreshCalls++
	fail := s.failRefresh
	s.mu.Unlock()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if fail {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	userID, ok := s.matchRefreshToken(req.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	access, err := s.tokens.Sign(userID, gen)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, domain.RefreshResponse{AccessToken: access})
}

func (s *Backend) matchRefreshToken(token string) (int64, bool) {
	s.mu.Lock()
	hashes := make(map[int64][]byte, len(s.refreshHash))
	for id, h := range s.refreshHash {
		hashes[id] = h
	}
	s.mu.Unlock()
	for id, h := range hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(token)) == nil {
			return id, true
		}
	}
	return 0, false
}

func (s *Backend) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	json.NewDecoder(r.Body).Decode(&req)
	if id, ok := s.matchRefreshToken(req.RefreshToken); ok {
		s.mu.Lock()
		delete(s.refreshHash, id)
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	s.mu.Lock()
	u, ok := s.users[id]
	var out domain.User
	if ok {
		out = *u
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Backend) putUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var u domain.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if u.ID != id {
		writeError(w, http.StatusBadRequest, "User id mismatch")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s.users[id] = &u
	w.WriteHeader(http.StatusNoContent)
}
