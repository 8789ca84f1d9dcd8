package projects

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

func setupTest(t *testing.T) (*Store, *users.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), users.NewStore(database)
}

func mustUser(t *testing.T, us *users.Store, name string) string {
	t.Helper()
	u, err := us.Create(context.Background(), users.User{Username: name, Email: name + "@example.com"}, "h")
	if err != nil {
		t.Fatalf("creating user %s: %v", name, err)
	}
	return u.ID
}

func TestCreateAndGet(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")

	created, err := store.Create(ctx, Project{Title: "Apollo", Description: "moonshot", OwnerID: owner})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.RoomID == "" {
		t.Error("expected project and room ids")
	}

	fetched, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Title != "Apollo" || fetched.OwnerID != owner {
		t.Errorf("unexpected project: %+v", fetched)
	}
	if fetched.RoomID != created.RoomID {
		t.Error("expected chat room to survive round trip")
	}
}

func TestRoleOf(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	sup := mustUser(t, us, "sup")
	member := mustUser(t, us, "member")
	outsider := mustUser(t, us, "outsider")

	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	store.AddSupervisors(ctx, p.ID, []string{sup})
	store.AddMembers(ctx, p.ID, []string{member})

	cases := []struct {
		user string
		want Role
	}{
		{owner, RoleOwner},
		{sup, RoleSupervisor},
		{member, RoleMember},
		{outsider, RoleNone},
	}
	for _, c := range cases {
		got, err := store.RoleOf(ctx, p.ID, c.user)
		if err != nil {
			t.Fatalf("RoleOf: %v", err)
		}
		if got != c.want {
			t.Errorf("RoleOf(%s) = %s, want %s", c.user, got, c.want)
		}
	}
}

func TestListFor(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	member := mustUser(t, us, "member")

	p1, _ := store.Create(ctx, Project{Title: "Owned", OwnerID: owner})
	p2, _ := store.Create(ctx, Project{Title: "Joined", OwnerID: member})
	store.AddMembers(ctx, p2.ID, []string{owner})

	list, err := store.ListFor(ctx, owner)
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(list))
	}

	list, _ = store.ListFor(ctx, member)
	if len(list) != 1 || list[0].ID != p2.ID {
		t.Errorf("expected member to see only %s", p2.ID)
	}
	_ = p1
}

func TestPhases(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	member := mustUser(t, us, "member")
	outsider := mustUser(t, us, "outsider")

	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	store.AddMembers(ctx, p.ID, []string{member})

	begin := time.Now().UTC()
	phase, err := store.CreatePhase(ctx, Phase{
		ProjectID: p.ID,
		Title:     "Design",
		BeginDate: begin,
		EndDate:   begin.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("CreatePhase: %v", err)
	}
	if phase.Status != StatusPending {
		t.Errorf("expected default pending status, got %s", phase.Status)
	}
	if phase.Color != "#FFFFFF" {
		t.Errorf("expected default color, got %s", phase.Color)
	}

	// Only project members may join a phase.
	added, err := store.AddPhaseMembers(ctx, phase.ID, p.ID, []string{member, outsider})
	if err != nil {
		t.Fatalf("AddPhaseMembers: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 added, got %d", added)
	}

	got, _ := store.GetPhase(ctx, phase.ID)
	if len(got.Members) != 1 || got.Members[0] != member {
		t.Errorf("unexpected phase members: %v", got.Members)
	}

	phases, _ := store.ListPhases(ctx, p.ID)
	if len(phases) != 1 {
		t.Errorf("expected 1 phase, got %d", len(phases))
	}
}

func TestDeleteCascades(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")

	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	begin := time.Now().UTC()
	phase, _ := store.CreatePhase(ctx, Phase{ProjectID: p.ID, Title: "D", BeginDate: begin, EndDate: begin})

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := store.GetPhase(ctx, phase.ID)
	if got != nil {
		t.Error("expected phase to be cascade-deleted")
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

func router(store *Store, userID string) chi.Router {
	r := chi.NewRouter()
	r.Use(authed(userID))
	RegisterRoutes(r, store)
	return r
}

func TestRoute_CreateAndGet(t *testing.T) {
	store, us := setupTest(t)
	owner := mustUser(t, us, "owner")
	r := router(store, owner)

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"Apollo","description":"moon"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var p Project
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.OwnerID != owner {
		t.Errorf("expected caller as owner, got %s", p.OwnerID)
	}

	req = httptest.NewRequest("GET", "/"+p.ID+"/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRoute_AccessControl(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	member := mustUser(t, us, "member")
	outsider := mustUser(t, us, "outsider")

	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	store.AddMembers(ctx, p.ID, []string{member})

	// Outsiders get 404, not 403, to avoid leaking existence.
	w := httptest.NewRecorder()
	router(store, outsider).ServeHTTP(w, httptest.NewRequest("GET", "/"+p.ID+"/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("outsider read: expected 404, got %d", w.Code)
	}

	// Members read but cannot write.
	w = httptest.NewRecorder()
	router(store, member).ServeHTTP(w, httptest.NewRequest("GET", "/"+p.ID+"/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("member read: expected 200, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	router(store, member).ServeHTTP(w,
		httptest.NewRequest("PUT", "/"+p.ID+"/", strings.NewReader(`{"title":"X"}`)))
	if w.Code != http.StatusForbidden {
		t.Errorf("member write: expected 403, got %d", w.Code)
	}

	// Only the owner deletes.
	w = httptest.NewRecorder()
	router(store, member).ServeHTTP(w, httptest.NewRequest("DELETE", "/"+p.ID+"/", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("member delete: expected 403, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	router(store, owner).ServeHTTP(w, httptest.NewRequest("DELETE", "/"+p.ID+"/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("owner delete: expected 204, got %d", w.Code)
	}
}

func TestRoute_SupervisorManagement(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	sup := mustUser(t, us, "sup")

	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	store.AddSupervisors(ctx, p.ID, []string{sup})

	// Supervisors manage members but not supervisors.
	body := `{"user_ids":["` + sup + `"]}`
	w := httptest.NewRecorder()
	router(store, sup).ServeHTTP(w,
		httptest.NewRequest("POST", "/"+p.ID+"/supervisors", strings.NewReader(body)))
	if w.Code != http.StatusForbidden {
		t.Errorf("supervisor adding supervisor: expected 403, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router(store, owner).ServeHTTP(w,
		httptest.NewRequest("POST", "/"+p.ID+"/supervisors", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Errorf("owner adding supervisor: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRoute_PhaseLifecycle(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	r := router(store, owner)

	body := `{"title":"Design","begin_date":"2026-01-01T00:00:00Z","end_date":"2026-02-01T00:00:00Z"}`
	req := httptest.NewRequest("POST", "/"+p.ID+"/phases/", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create phase: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var phase Phase
	json.Unmarshal(w.Body.Bytes(), &phase)

	// Update status.
	req = httptest.NewRequest("PUT", "/"+p.ID+"/phases/"+phase.ID+"/", strings.NewReader(`{"status":"in_progress"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update phase: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated Phase
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Status != StatusInProgress {
		t.Errorf("expected in_progress, got %s", updated.Status)
	}

	// Invalid status rejected.
	req = httptest.NewRequest("PUT", "/"+p.ID+"/phases/"+phase.ID+"/", strings.NewReader(`{"status":"later"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status: expected 400, got %d", w.Code)
	}
}

func TestRoute_PhaseFieldValidation(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	p, _ := store.Create(ctx, Project{Title: "P", OwnerID: owner})
	r := router(store, owner)

	dates := `"begin_date":"2026-01-01T00:00:00Z","end_date":"2026-02-01T00:00:00Z"`

	// Oversized title.
	body := `{"title":"` + strings.Repeat("x", 31) + `",` + dates + `}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/"+p.ID+"/phases/", strings.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("31-char title: expected 400, got %d", w.Code)
	}

	// Oversized description.
	body = `{"title":"D","description":"` + strings.Repeat("d", 151) + `",` + dates + `}`
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/"+p.ID+"/phases/", strings.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("151-char description: expected 400, got %d", w.Code)
	}

	// Malformed colors.
	for _, color := range []string{"red", "#12345", "#1234567", "#GGGGGG", "123456#"} {
		body = `{"title":"D","color":"` + color + `",` + dates + `}`
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/"+p.ID+"/phases/", strings.NewReader(body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("color %q: expected 400, got %d", color, w.Code)
		}
	}

	// A proper #RRGGBB passes.
	body = `{"title":"D","color":"#4C9AFF",` + dates + `}`
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/"+p.ID+"/phases/", strings.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("valid phase: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var phase Phase
	json.Unmarshal(w.Body.Bytes(), &phase)

	// The same checks guard updates.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/"+p.ID+"/phases/"+phase.ID+"/",
		strings.NewReader(`{"color":"blue"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("color on update: expected 400, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/"+p.ID+"/phases/"+phase.ID+"/",
		strings.NewReader(`{"title":"`+strings.Repeat("x", 31)+`"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("31-char title on update: expected 400, got %d", w.Code)
	}

	// Project description limit counts characters, not bytes.
	accented := strings.Repeat("é", 150)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/"+p.ID+"/",
		strings.NewReader(`{"description":"`+accented+`"}`)))
	if w.Code != http.StatusOK {
		t.Errorf("150-rune description: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/"+p.ID+"/",
		strings.NewReader(`{"description":"`+strings.Repeat("é", 151)+`"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("151-rune description: expected 400, got %d", w.Code)
	}
}

func TestRoute_PhaseWrongProject(t *testing.T) {
	store, us := setupTest(t)
	ctx := context.Background()
	owner := mustUser(t, us, "owner")
	p1, _ := store.Create(ctx, Project{Title: "A", OwnerID: owner})
	p2, _ := store.Create(ctx, Project{Title: "B", OwnerID: owner})
	begin := time.Now().UTC()
	phase, _ := store.CreatePhase(ctx, Phase{ProjectID: p1.ID, Title: "D", BeginDate: begin, EndDate: begin})

	// A phase is not reachable through another project's URL.
	w := httptest.NewRecorder()
	router(store, owner).ServeHTTP(w, httptest.NewRequest("GET", "/"+p2.ID+"/phases/"+phase.ID+"/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
