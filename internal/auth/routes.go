package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"taskhive/internal/users"
)

// RegisterRoutes mounts the account and session endpoints at the root of r.
// The shell mounts r itself under /auth.
func RegisterRoutes(r chi.Router, userStore *users.Store, issuer *Issuer, refresh *RefreshStore) {
	r.Post("/register", handleRegister(userStore))
	r.Post("/login", handleLogin(userStore, issuer, refresh))
	r.Post("/token/refresh", handleRefresh(issuer, refresh))
	r.Post("/logout", handleLogout(refresh))
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func handleRegister(userStore *users.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Email == "" || req.Password == "" {
			http.Error(w, `{"error":"username, email and password are required"}`, http.StatusBadRequest)
			return
		}
		if utf8.RuneCountInString(req.Username) > 20 {
			http.Error(w, `{"error":"username must be at most 20 characters"}`, http.StatusBadRequest)
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		created, err := userStore.Create(r.Context(), users.User{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}, hash)
		if errors.Is(err, users.ErrDuplicate) {
			http.Error(w, `{"error":"username or email already taken"}`, http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func handleLogin(userStore *users.Store, issuer *Issuer, refresh *RefreshStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		id, hash, err := userStore.Credentials(r.Context(), req.Username)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if id == "" {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}

		ok, err := VerifyPassword(req.Password, hash)
		if err != nil || !ok {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}

		access, err := issuer.Issue(id)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		refreshToken, err := refresh.Create(r.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{Access: access, Refresh: refreshToken})
	}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func handleRefresh(issuer *Issuer, refresh *RefreshStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
			http.Error(w, `{"error":"refresh token is required"}`, http.StatusBadRequest)
			return
		}

		userID, newToken, err := refresh.Rotate(r.Context(), req.Refresh)
		if errors.Is(err, ErrInvalidToken) {
			http.Error(w, `{"error":"invalid refresh token"}`, http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		access, err := issuer.Issue(userID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{Access: access, Refresh: newToken})
	}
}

func handleLogout(refresh *RefreshStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
			http.Error(w, `{"error":"refresh token is required"}`, http.StatusBadRequest)
			return
		}

		if err := refresh.Revoke(r.Context(), req.Refresh); err != nil {
			http.Error(w, `{"error":"invalid refresh token"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusResetContent)
	}
}
