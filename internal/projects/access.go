package projects

import (
	"net/http"

	"taskhive/internal/identity"
)

// requireRole checks the caller's role against the minimum required and
// writes the error response itself when access is denied. Returns false
// when the handler should stop.
func requireRole(w http.ResponseWriter, r *http.Request, store *Store, projectID string, min Role) bool {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
		return false
	}
	role, err := store.RoleOf(r.Context(), projectID, userID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return false
	}
	if role == RoleNone {
		// Non-participants cannot tell whether the project exists.
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return false
	}
	if role < min {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return false
	}
	return true
}
