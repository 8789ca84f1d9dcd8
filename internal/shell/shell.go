// Package shell owns the top-level routing surface. It dispatches each
// request to exactly one feature area by path prefix, serves the
// welcome page on the exact root path, and answers everything else
// with an empty 404 body.
package shell

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Delegates are the four feature areas the shell routes between. Each
// handler sees paths relative to its mount point, so the same handler
// tree works regardless of where the shell hangs it.
type Delegates struct {
	Auth     http.Handler
	Projects http.Handler
	Tasks    http.Handler
	Chat     http.Handler
}

// Mount wires the delegates onto r. Welcome is served on the exact
// root path only; Help, when non-nil, on /help. Paths outside every
// mount answer 404 with an empty body so probes learn nothing from
// the response.
func Mount(r chi.Router, d Delegates, welcome, help http.HandlerFunc) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.Get("/", welcome)
	if help != nil {
		r.Get("/help", help)
	}

	r.Mount("/auth", d.Auth)
	r.Mount("/projects", d.Projects)
	r.Mount("/tasks", d.Tasks)
	r.Mount("/chat", d.Chat)
}
