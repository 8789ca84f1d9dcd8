package tasks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"taskhive/internal/identity"
	"taskhive/internal/notifications"
	"taskhive/internal/projects"
)

// RegisterRoutes mounts the task endpoints at the root of r. The shell
// mounts r itself under /tasks. The caller is expected to wrap r in the
// auth middleware.
func RegisterRoutes(r chi.Router, store *Store, proj *projects.Store, notifier *notifications.Notifier) {
	r.Route("/phase/{phaseID}", func(r chi.Router) {
		r.Get("/", handleListByPhase(store, proj))
		r.Post("/", handleCreate(store, proj, notifier))
	})
	r.Get("/mine", handleMine(store, AssignedAny))
	r.Get("/mine/led", handleMine(store, AssignedLeader))
	r.Get("/mine/member", handleMine(store, AssignedMember))
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", handleGet(store, proj))
		r.Put("/", handleUpdate(store, proj, notifier))
		r.Delete("/", handleDelete(store, proj, notifier))
		r.Post("/members", handleMembers(store, proj, notifier, true))
		r.Delete("/members", handleMembers(store, proj, notifier, false))
		r.Route("/comments", func(r chi.Router) {
			r.Get("/", handleListComments(store, proj))
			r.Post("/", handleCreateComment(store, proj, notifier))
			r.Get("/{commentID}", handleGetComment(store, proj))
			r.Put("/{commentID}", handleEditComment(store, proj, true))
			r.Delete("/{commentID}", handleEditComment(store, proj, false))
		})
	})
}

// callerRole resolves the caller's role in the project and writes the
// error response itself when access is denied. Outsiders see a 404 so
// they cannot probe for existing projects.
func callerRole(w http.ResponseWriter, r *http.Request, proj *projects.Store, projectID string) (string, projects.Role, bool) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
		return "", projects.RoleNone, false
	}
	role, err := proj.RoleOf(r.Context(), projectID, userID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return "", projects.RoleNone, false
	}
	if role == projects.RoleNone {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return "", projects.RoleNone, false
	}
	return userID, role, true
}

// canManage reports whether the caller may modify the task: project
// owners and supervisors always, the task leader for their own task.
func canManage(role projects.Role, userID string, t *Task) bool {
	return role >= projects.RoleSupervisor || (t.LeaderID != "" && t.LeaderID == userID)
}

func handleListByPhase(store *Store, proj *projects.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phaseID := chi.URLParam(r, "phaseID")
		projectID, err := proj.ProjectIDForPhase(r.Context(), phaseID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if projectID == "" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		if _, _, ok := callerRole(w, r, proj, projectID); !ok {
			return
		}

		list, err := store.ListByPhase(r.Context(), phaseID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []Task{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

type createRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Priority      int        `json:"priority"`
	LeaderID      string     `json:"leader_id"`
	ParentID      string     `json:"parent_id"`
	DueDate       *time.Time `json:"due_date"`
	DependencyIDs []string   `json:"dependency_ids"`
}

func handleCreate(store *Store, proj *projects.Store, notifier *notifications.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phaseID := chi.URLParam(r, "phaseID")
		projectID, err := proj.ProjectIDForPhase(r.Context(), phaseID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if projectID == "" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		userID, role, ok := callerRole(w, r, proj, projectID)
		if !ok {
			return
		}
		if role < projects.RoleSupervisor {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}

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
		if req.ParentID != "" {
			parent, err := store.GetByID(r.Context(), req.ParentID)
			if err != nil {
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
				return
			}
			if parent == nil || parent.PhaseID != phaseID {
				http.Error(w, `{"error":"parent task not in phase"}`, http.StatusBadRequest)
				return
			}
		}

		created, err := store.Create(r.Context(), Task{
			PhaseID:       phaseID,
			Title:         req.Title,
			Description:   req.Description,
			Priority:      req.Priority,
			LeaderID:      req.LeaderID,
			ParentID:      req.ParentID,
			DueDate:       req.DueDate,
			DependencyIDs: req.DependencyIDs,
		})
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		owner, title, supervisors, err := store.ProjectCrew(r.Context(), projectID)
		if err == nil {
			recipients := append([]string{owner, created.LeaderID}, supervisors...)
			notifier.Notify(r.Context(), recipients,
				fmt.Sprintf("New task %q was created in project %q", created.Title, title), userID)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func handleMine(store *Store, filter AssignmentFilter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
			return
		}
		list, err := store.ListFor(r.Context(), userID, filter)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []Task{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// loadTask fetches the task and its project, applying access checks.
// Writes the error response and returns ok=false when the handler
// should stop.
func loadTask(w http.ResponseWriter, r *http.Request, store *Store, proj *projects.Store) (*Task, string, string, projects.Role, bool) {
	taskID := chi.URLParam(r, "taskID")
	projectID, err := store.ProjectIDForTask(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return nil, "", "", projects.RoleNone, false
	}
	if projectID == "" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, "", "", projects.RoleNone, false
	}
	userID, role, ok := callerRole(w, r, proj, projectID)
	if !ok {
		return nil, "", "", projects.RoleNone, false
	}
	task, err := store.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return nil, "", "", projects.RoleNone, false
	}
	if task == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, "", "", projects.RoleNone, false
	}
	return task, projectID, userID, role, true
}

func handleGet(store *Store, proj *projects.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, _, _, _, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(task)
	}
}

func handleUpdate(store *Store, proj *projects.Store, notifier *notifications.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, projectID, userID, role, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		if !canManage(role, userID, task) {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}

		var upd TaskUpdate
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
		// Changing the leader requires project-level authority.
		if upd.LeaderID != nil && role < projects.RoleSupervisor {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}

		if err := store.Update(r.Context(), task.ID, upd); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		updated, err := store.GetByID(r.Context(), task.ID)
		if err != nil || updated == nil {
			http.Error(w, `{"error":"reloading task"}`, http.StatusInternalServerError)
			return
		}

		if owner, title, supervisors, err := store.ProjectCrew(r.Context(), projectID); err == nil {
			if upd.Status != nil && *upd.Status != task.Status {
				recipients := append([]string{owner, updated.LeaderID}, supervisors...)
				recipients = append(recipients, updated.MemberIDs...)
				notifier.Notify(r.Context(), recipients,
					fmt.Sprintf("Task %q in project %q is now %s", updated.Title, title, *upd.Status), userID)
			}
			if upd.LeaderID != nil && *upd.LeaderID != task.LeaderID {
				notifier.Notify(r.Context(), []string{task.LeaderID},
					fmt.Sprintf("You are no longer leading task %q in project %q", updated.Title, title), userID)
				notifier.Notify(r.Context(), []string{updated.LeaderID},
					fmt.Sprintf("You are now leading task %q in project %q", updated.Title, title), userID)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}

func handleDelete(store *Store, proj *projects.Store, notifier *notifications.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, projectID, userID, role, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		if !canManage(role, userID, task) {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}

		if err := store.Delete(r.Context(), task.ID); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		if owner, title, supervisors, err := store.ProjectCrew(r.Context(), projectID); err == nil {
			recipients := append([]string{owner, task.LeaderID}, supervisors...)
			recipients = append(recipients, task.MemberIDs...)
			notifier.Notify(r.Context(), recipients,
				fmt.Sprintf("Task %q in project %q was deleted", task.Title, title), userID)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type memberRequest struct {
	UserIDs []string `json:"user_ids"`
}

func handleMembers(store *Store, proj *projects.Store, notifier *notifications.Notifier, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, projectID, userID, role, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		if !canManage(role, userID, task) {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}

		var req memberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
			http.Error(w, `{"error":"user_ids is required"}`, http.StatusBadRequest)
			return
		}

		var affected []string
		var err error
		var message string
		if add {
			affected, err = store.AddMembers(r.Context(), task.ID, projectID, req.UserIDs)
			message = fmt.Sprintf("You were assigned to task %q", task.Title)
		} else {
			affected, err = store.RemoveMembers(r.Context(), task.ID, req.UserIDs)
			message = fmt.Sprintf("You were removed from task %q", task.Title)
		}
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		notifier.Notify(r.Context(), affected, message, userID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"affected": len(affected)})
	}
}

func handleListComments(store *Store, proj *projects.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, _, _, _, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		list, err := store.ListComments(r.Context(), task.ID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []Comment{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

type commentRequest struct {
	Content string `json:"content"`
}

func handleGetComment(store *Store, proj *projects.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, _, _, _, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		comment, err := store.GetComment(r.Context(), task.ID, chi.URLParam(r, "commentID"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if comment == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(comment)
	}
}

func handleCreateComment(store *Store, proj *projects.Store, notifier *notifications.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, _, userID, _, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}

		var req commentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Content == "" || utf8.RuneCountInString(req.Content) > 300 {
			http.Error(w, `{"error":"content must be 1-300 characters"}`, http.StatusBadRequest)
			return
		}

		created, err := store.CreateComment(r.Context(), Comment{
			TaskID:   task.ID,
			AuthorID: userID,
			Content:  req.Content,
		})
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		recipients := append([]string{task.LeaderID}, task.MemberIDs...)
		notifier.Notify(r.Context(), recipients,
			fmt.Sprintf("New comment on task %q", task.Title), userID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

// handleEditComment covers both update and delete. Only the author may
// touch their comment.
func handleEditComment(store *Store, proj *projects.Store, update bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, _, userID, _, ok := loadTask(w, r, store, proj)
		if !ok {
			return
		}
		comment, err := store.GetComment(r.Context(), task.ID, chi.URLParam(r, "commentID"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if comment == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		if comment.AuthorID != userID {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}

		if !update {
			if err := store.DeleteComment(r.Context(), comment.ID); err != nil {
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		var req commentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Content == "" || utf8.RuneCountInString(req.Content) > 300 {
			http.Error(w, `{"error":"content must be 1-300 characters"}`, http.StatusBadRequest)
			return
		}
		if err := store.UpdateComment(r.Context(), comment.ID, req.Content); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		updated, err := store.GetComment(r.Context(), task.ID, comment.ID)
		if err != nil || updated == nil {
			http.Error(w, `{"error":"reloading comment"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
	}
}
