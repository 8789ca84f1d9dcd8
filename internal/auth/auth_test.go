package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"taskhive/internal/db"
	"taskhive/internal/identity"
	"taskhive/internal/users"
)

func setupTest(t *testing.T) (*users.Store, *Issuer, *RefreshStore) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	issuer := NewIssuer("test-secret", 15*time.Minute)
	refresh := NewRefreshStore(database, time.Hour)
	return users.NewStore(database), issuer, refresh
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("hunter2", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("expected password to verify")
	}

	ok, _ = VerifyPassword("wrong", hash)
	if ok {
		t.Error("expected wrong password to fail")
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	if _, err := VerifyPassword("x", "not-a-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "user-1" {
		t.Errorf("expected user-1, got %q", got)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := NewIssuer("secret", -time.Minute)
	token, _ := issuer.Issue("user-1")

	if _, err := issuer.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _ := NewIssuer("secret-a", time.Minute).Issue("user-1")

	if _, err := NewIssuer("secret-b", time.Minute).Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshRotate(t *testing.T) {
	_, _, refresh := setupTest(t)
	ctx := context.Background()

	token, err := refresh.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	userID, newToken, err := refresh.Rotate(ctx, token)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}
	if newToken == token {
		t.Error("expected rotated token to differ")
	}

	// The old token is spent.
	if _, _, err := refresh.Rotate(ctx, token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for spent token, got %v", err)
	}
}

func TestRefreshRevoke(t *testing.T) {
	_, _, refresh := setupTest(t)
	ctx := context.Background()

	token, _ := refresh.Create(ctx, "user-1")
	if err := refresh.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := refresh.Revoke(ctx, token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for double revoke, got %v", err)
	}
	if err := refresh.Revoke(ctx, "unknown"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for unknown token, got %v", err)
	}
}

// HTTP handler tests

func setupRouter(t *testing.T) (chi.Router, *users.Store, *Issuer, *RefreshStore) {
	t.Helper()
	userStore, issuer, refresh := setupTest(t)
	r := chi.NewRouter()
	RegisterRoutes(r, userStore, issuer, refresh)
	return r, userStore, issuer, refresh
}

func register(t *testing.T, r chi.Router, username string) {
	t.Helper()
	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"hunter2"}`
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRoute_RegisterAndLogin(t *testing.T) {
	r, _, issuer, _ := setupRouter(t)
	register(t, r, "alice")

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"alice","password":"hunter2"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var tokens tokenResponse
	json.Unmarshal(w.Body.Bytes(), &tokens)
	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatal("expected both tokens")
	}
	if _, err := issuer.Verify(tokens.Access); err != nil {
		t.Errorf("access token does not verify: %v", err)
	}
}

func TestRoute_LoginBadPassword(t *testing.T) {
	r, _, _, _ := setupRouter(t)
	register(t, r, "alice")

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"alice","password":"nope"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRoute_RegisterDuplicate(t *testing.T) {
	r, _, _, _ := setupRouter(t)
	register(t, r, "alice")

	body := `{"username":"alice","email":"alice@example.com","password":"x"}`
	req := httptest.NewRequest("POST", "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestRoute_RefreshAndLogout(t *testing.T) {
	r, _, _, _ := setupRouter(t)
	register(t, r, "alice")

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"alice","password":"hunter2"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var tokens tokenResponse
	json.Unmarshal(w.Body.Bytes(), &tokens)

	req = httptest.NewRequest("POST", "/token/refresh", strings.NewReader(`{"refresh":"`+tokens.Refresh+`"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rotated tokenResponse
	json.Unmarshal(w.Body.Bytes(), &rotated)

	// Logout with the rotated token.
	req = httptest.NewRequest("POST", "/logout", strings.NewReader(`{"refresh":"`+rotated.Refresh+`"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusResetContent {
		t.Errorf("logout: expected 205, got %d", w.Code)
	}

	// Rotated-away token no longer refreshes.
	req = httptest.NewRequest("POST", "/token/refresh", strings.NewReader(`{"refresh":"`+tokens.Refresh+`"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for spent token, got %d", w.Code)
	}
}

func TestRequireMiddleware(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)

	r := chi.NewRouter()
	r.Use(Require(issuer))
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.UserID(r.Context())
		w.Write([]byte(id))
	})

	// Missing token.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Valid bearer token.
	token, _ := issuer.Issue("user-9")
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "user-9" {
		t.Errorf("expected user-9, got %d %q", w.Code, w.Body.String())
	}

	// Token via query parameter (websocket path).
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/whoami?token="+token, nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with query token, got %d", w.Code)
	}
}
