package projects

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"taskhive/internal/identity"
)

// RegisterRoutes mounts the project and phase endpoints at the root of r.
// The shell mounts r itself under /projects. The caller is expected to
// wrap r in the auth middleware.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/", handleList(store))
	r.Post("/", handleCreate(store))
	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", handleGet(store))
		r.Put("/", handleUpdate(store))
		r.Delete("/", handleDelete(store))
		r.Post("/members", handleMembers(store, true))
		r.Delete("/members", handleMembers(store, false))
		r.Post("/supervisors", handleSupervisors(store, true))
		r.Delete("/supervisors", handleSupervisors(store, false))
		r.Post("/files", handleFiles(store, true))
		r.Delete("/files", handleFiles(store, false))
		r.Route("/phases", func(r chi.Router) {
			r.Get("/", handleListPhases(store))
			r.Post("/", handleCreatePhase(store))
			r.Route("/{phaseID}", func(r chi.Router) {
				r.Get("/", handleGetPhase(store))
				r.Put("/", handleUpdatePhase(store))
				r.Delete("/", handleDeletePhase(store))
				r.Post("/members", handlePhaseMembers(store, true))
				r.Delete("/members", handlePhaseMembers(store, false))
			})
		})
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := identity.UserID(r.Context())
		list, err := store.ListFor(r.Context(), userID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []Summary{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := identity.UserID(r.Context())

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Title == "" {
			http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
			return
		}
		if utf8.RuneCountInString(req.Title) > 30 || utf8.RuneCountInString(req.Description) > 150 {
			http.Error(w, `{"error":"title or description too long"}`, http.StatusBadRequest)
			return
		}

		created, err := store.Create(r.Context(), Project{
			Title:       req.Title,
			Description: req.Description,
			OwnerID:     userID,
		})
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleMember) {
			return
		}
		p, err := store.GetByID(r.Context(), projectID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if p == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

func handleUpdate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleSupervisor) {
			return
		}

		var upd ProjectUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if upd.Title != nil && (*upd.Title == "" || utf8.RuneCountInString(*upd.Title) > 30) {
			http.Error(w, `{"error":"invalid title"}`, http.StatusBadRequest)
			return
		}
		if upd.Description != nil && utf8.RuneCountInString(*upd.Description) > 150 {
			http.Error(w, `{"error":"description too long"}`, http.StatusBadRequest)
			return
		}

		if err := store.Update(r.Context(), projectID, upd); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		p, err := store.GetByID(r.Context(), projectID)
		if err != nil || p == nil {
			http.Error(w, `{"error":"reloading project failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleOwner) {
			return
		}
		if err := store.Delete(r.Context(), projectID); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type userIDsRequest struct {
	UserIDs []string `json:"user_ids"`
}

func handleMembers(store *Store, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleSupervisor) {
			return
		}

		var req userIDsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
			http.Error(w, `{"error":"user_ids is required"}`, http.StatusBadRequest)
			return
		}

		var err error
		status := "members added"
		if add {
			err = store.AddMembers(r.Context(), projectID, req.UserIDs)
		} else {
			err = store.RemoveMembers(r.Context(), projectID, req.UserIDs)
			status = "members removed"
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func handleSupervisors(store *Store, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleOwner) {
			return
		}

		var req userIDsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
			http.Error(w, `{"error":"user_ids is required"}`, http.StatusBadRequest)
			return
		}

		var err error
		status := "supervisors added"
		if add {
			err = store.AddSupervisors(r.Context(), projectID, req.UserIDs)
		} else {
			err = store.RemoveSupervisors(r.Context(), projectID, req.UserIDs)
			status = "supervisors removed"
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

type fileIDsRequest struct {
	FileIDs []string `json:"file_ids"`
}

func handleFiles(store *Store, attach bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleSupervisor) {
			return
		}

		var req fileIDsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FileIDs) == 0 {
			http.Error(w, `{"error":"file_ids is required"}`, http.StatusBadRequest)
			return
		}

		var err error
		status := "files attached"
		if attach {
			err = store.AttachFiles(r.Context(), projectID, req.FileIDs)
		} else {
			err = store.DetachFiles(r.Context(), projectID, req.FileIDs)
			status = "files detached"
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func handleListPhases(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleMember) {
			return
		}
		phases, err := store.ListPhases(r.Context(), projectID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if phases == nil {
			phases = []Phase{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(phases)
	}
}

func handleCreatePhase(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleSupervisor) {
			return
		}

		var p Phase
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if p.Title == "" || p.BeginDate.IsZero() || p.EndDate.IsZero() {
			http.Error(w, `{"error":"title, begin_date and end_date are required"}`, http.StatusBadRequest)
			return
		}
		if utf8.RuneCountInString(p.Title) > 30 || utf8.RuneCountInString(p.Description) > 150 {
			http.Error(w, `{"error":"title or description too long"}`, http.StatusBadRequest)
			return
		}
		if p.Status != "" && !ValidStatus(p.Status) {
			http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
			return
		}
		if p.Color != "" && !ValidColor(p.Color) {
			http.Error(w, `{"error":"color must be #RRGGBB"}`, http.StatusBadRequest)
			return
		}
		p.ProjectID = projectID

		created, err := store.CreatePhase(r.Context(), p)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

// phaseInProject loads the phase and verifies it belongs to the project in
// the URL. Writes the error response itself when it does not.
func phaseInProject(w http.ResponseWriter, r *http.Request, store *Store) *Phase {
	projectID := chi.URLParam(r, "projectID")
	phase, err := store.GetPhase(r.Context(), chi.URLParam(r, "phaseID"))
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return nil
	}
	if phase == nil || phase.ProjectID != projectID {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil
	}
	return phase
}

func handleGetPhase(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, store, chi.URLParam(r, "projectID"), RoleMember) {
			return
		}
		phase := phaseInProject(w, r, store)
		if phase == nil {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(phase)
	}
}

func handleUpdatePhase(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, store, chi.URLParam(r, "projectID"), RoleSupervisor) {
			return
		}
		phase := phaseInProject(w, r, store)
		if phase == nil {
			return
		}

		var upd PhaseUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if upd.Title != nil && (*upd.Title == "" || utf8.RuneCountInString(*upd.Title) > 30) {
			http.Error(w, `{"error":"invalid title"}`, http.StatusBadRequest)
			return
		}
		if upd.Description != nil && utf8.RuneCountInString(*upd.Description) > 150 {
			http.Error(w, `{"error":"description too long"}`, http.StatusBadRequest)
			return
		}
		if upd.Status != nil && !ValidStatus(*upd.Status) {
			http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
			return
		}
		if upd.Color != nil && !ValidColor(*upd.Color) {
			http.Error(w, `{"error":"color must be #RRGGBB"}`, http.StatusBadRequest)
			return
		}

		if err := store.UpdatePhase(r.Context(), phase.ID, upd); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		updated, err := store.GetPhase(r.Context(), phase.ID)
		if err != nil || updated == nil {
			http.Error(w, `{"error":"reloading phase failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func handleDeletePhase(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireRole(w, r, store, chi.URLParam(r, "projectID"), RoleSupervisor) {
			return
		}
		phase := phaseInProject(w, r, store)
		if phase == nil {
			return
		}
		if err := store.DeletePhase(r.Context(), phase.ID); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePhaseMembers(store *Store, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if !requireRole(w, r, store, projectID, RoleSupervisor) {
			return
		}
		phase := phaseInProject(w, r, store)
		if phase == nil {
			return
		}

		var req userIDsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
			http.Error(w, `{"error":"user_ids is required"}`, http.StatusBadRequest)
			return
		}

		var n int
		var err error
		if add {
			n, err = store.AddPhaseMembers(r.Context(), phase.ID, projectID, req.UserIDs)
		} else {
			n, err = store.RemovePhaseMembers(r.Context(), phase.ID, req.UserIDs)
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"count": n})
	}
}
