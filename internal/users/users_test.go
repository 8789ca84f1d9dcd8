package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"taskhive/internal/db"
	"taskhive/internal/identity"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, User{
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
	}, "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected non-empty ID")
	}

	fetched, err := store.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if fetched == nil || fetched.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", fetched)
	}
}

func TestCreateDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.Create(ctx, User{Username: "alice", Email: "alice@example.com"}, "h")

	_, err := store.Create(ctx, User{Username: "alice", Email: "other@example.com"}, "h")
	if err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate for username, got %v", err)
	}

	_, err = store.Create(ctx, User{Username: "bob", Email: "alice@example.com"}, "h")
	if err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate for email, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, _ := store.Create(ctx, User{Username: "alice", Email: "a@example.com"}, "thehash")

	id, hash, err := store.Credentials(ctx, "alice")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if id != created.ID || hash != "thehash" {
		t.Errorf("unexpected credentials: %s %s", id, hash)
	}

	id, _, _ = store.Credentials(ctx, "nobody")
	if id != "" {
		t.Error("expected empty id for unknown user")
	}
}

func TestUpdateProfile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, _ := store.Create(ctx, User{Username: "alice", Email: "a@example.com"}, "h")

	first := "Alice"
	hook := "https://example.com/hook"
	err := store.UpdateProfile(ctx, created.ID, ProfileUpdate{FirstName: &first, WebhookURL: &hook})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	u, _ := store.GetByID(ctx, created.ID)
	if u.FirstName != "Alice" || u.WebhookURL != hook {
		t.Errorf("unexpected profile: %+v", u)
	}
}

// HTTP handler tests

func authed(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), userID)))
		})
	}
}

func TestRoute_ListUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	u, _ := store.Create(ctx, User{Username: "alice", Email: "a@example.com"}, "h")
	store.Create(ctx, User{Username: "bob", Email: "b@example.com"}, "h")

	r := chi.NewRouter()
	r.Use(authed(u.ID))
	RegisterRoutes(r, store)

	req := httptest.NewRequest("GET", "/users/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list []Summary
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Errorf("expected 2 users, got %d", len(list))
	}
}

func TestRoute_Profile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	u, _ := store.Create(ctx, User{Username: "alice", Email: "a@example.com"}, "h")

	r := chi.NewRouter()
	r.Use(authed(u.ID))
	RegisterRoutes(r, store)

	req := httptest.NewRequest("GET", "/profile/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got User
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.Username != "alice" {
		t.Errorf("expected alice, got %q", got.Username)
	}
}

func TestRoute_UpdateProfile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	u, _ := store.Create(ctx, User{Username: "alice", Email: "a@example.com"}, "h")

	r := chi.NewRouter()
	r.Use(authed(u.ID))
	RegisterRoutes(r, store)

	body := `{"first_name":"Alice","last_name":"Liddell"}`
	req := httptest.NewRequest("PUT", "/profile/", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got User
	json.Unmarshal(w.Body.Bytes(), &got)
	if got.LastName != "Liddell" {
		t.Errorf("expected updated last name, got %q", got.LastName)
	}
}
