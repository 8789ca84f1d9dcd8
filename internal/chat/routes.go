package chat

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"taskhive/internal/identity"
	"taskhive/internal/projects"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inbound is the incoming websocket message format.
type inbound struct {
	Type          string   `json:"type"` // "message" or "typing"
	Content       string   `json:"content"`
	AttachedFiles []string `json:"attached_files,omitempty"`
	IsTyping      bool     `json:"is_typing,omitempty"`
}

// outbound is the outgoing websocket message format.
type outbound struct {
	Type     string   `json:"type"` // "message", "typing" or "error"
	Message  *Message `json:"message,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
	IsTyping bool     `json:"is_typing,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// RegisterRoutes mounts the chat endpoints at the root of r. The shell
// mounts r itself under /chat. The caller is expected to wrap r in the
// auth middleware; the websocket endpoint reads the token from the
// "token" query parameter since browsers cannot set headers on
// websocket dials.
func RegisterRoutes(r chi.Router, store *Store, proj *projects.Store, hub *Hub) {
	r.Route("/{roomID}", func(r chi.Router) {
		r.Get("/messages", handleHistory(store, proj))
		r.Post("/messages", handlePost(store, proj, hub))
		r.Delete("/messages/{messageID}", handleDeleteMessage(store, proj))
		r.Get("/occupants", handleOccupants(proj, hub))
		r.Get("/ws", handleSocket(store, proj, hub))
	})
}

// roomAccess resolves the room to its project and checks the caller
// participates. Writes the error response itself; outsiders see a 404.
func roomAccess(w http.ResponseWriter, r *http.Request, proj *projects.Store) (roomID, userID string, ok bool) {
	roomID = chi.URLParam(r, "roomID")
	userID, authed := identity.UserID(r.Context())
	if !authed {
		http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
		return "", "", false
	}
	projectID, err := proj.ProjectIDForRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return "", "", false
	}
	if projectID == "" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return "", "", false
	}
	role, err := proj.RoleOf(r.Context(), projectID, userID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return "", "", false
	}
	if role == projects.RoleNone {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return "", "", false
	}
	return roomID, userID, true
}

func handleHistory(store *Store, proj *projects.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, _, ok := roomAccess(w, r, proj)
		if !ok {
			return
		}

		filter := HistoryFilter{}
		q := r.URL.Query()
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		filter.Offset, _ = strconv.Atoi(q.Get("offset"))
		if before := q.Get("before"); before != "" {
			t, err := time.Parse(time.RFC3339, before)
			if err != nil {
				http.Error(w, `{"error":"before must be RFC 3339"}`, http.StatusBadRequest)
				return
			}
			filter.Before = t
		}

		list, err := store.History(r.Context(), roomID, filter)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

type postRequest struct {
	Content string   `json:"content"`
	FileIDs []string `json:"file_ids"`
}

// handlePost accepts a message over plain HTTP, for clients without a
// live socket. Connected clients still see it through the hub.
func handlePost(store *Store, proj *projects.Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, userID, ok := roomAccess(w, r, proj)
		if !ok {
			return
		}

		var req postRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Content == "" || utf8.RuneCountInString(req.Content) > 300 {
			http.Error(w, `{"error":"content must be 1-300 characters"}`, http.StatusBadRequest)
			return
		}

		created, err := store.CreateMessage(r.Context(), Message{
			RoomID:   roomID,
			SenderID: userID,
			Content:  req.Content,
			FileIDs:  req.FileIDs,
		})
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		if payload, err := json.Marshal(outbound{Type: "message", Message: created}); err == nil {
			hub.broadcast(roomID, payload, "")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func handleDeleteMessage(store *Store, proj *projects.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, userID, ok := roomAccess(w, r, proj)
		if !ok {
			return
		}
		if err := store.DeleteMessage(r.Context(), roomID, chi.URLParam(r, "messageID"), userID); err != nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleOccupants(proj *projects.Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, _, ok := roomAccess(w, r, proj)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"occupants": hub.Occupants(roomID)})
	}
}

func handleSocket(store *Store, proj *projects.Store, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, userID, ok := roomAccess(w, r, proj)
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := &client{userID: userID, send: make(chan []byte, 32)}
		hub.join(roomID, c)
		defer hub.leave(roomID, c)

		// All writes go through the send channel so the writer
		// goroutine is the only one touching the connection.
		go func() {
			for payload := range c.send {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}()

		sendError := func(message string) {
			if payload, err := json.Marshal(outbound{Type: "error", Error: message}); err == nil {
				select {
				case c.send <- payload:
				default:
				}
			}
		}

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var in inbound
			if err := json.Unmarshal(raw, &in); err != nil {
				sendError("invalid message format")
				continue
			}

			switch in.Type {
			case "message":
				if in.Content == "" || utf8.RuneCountInString(in.Content) > 300 {
					sendError("content must be 1-300 characters")
					continue
				}
				created, err := store.CreateMessage(r.Context(), Message{
					RoomID:   roomID,
					SenderID: userID,
					Content:  in.Content,
					FileIDs:  in.AttachedFiles,
				})
				if err != nil {
					sendError("failed to store message")
					continue
				}
				if payload, err := json.Marshal(outbound{Type: "message", Message: created}); err == nil {
					// Everyone sees stored messages, the sender included,
					// so all clients render the same history.
					hub.broadcast(roomID, payload, "")
				}
			case "typing":
				if payload, err := json.Marshal(outbound{Type: "typing", UserID: userID, IsTyping: in.IsTyping}); err == nil {
					// The typist already knows they are typing.
					hub.broadcast(roomID, payload, userID)
				}
			default:
				sendError("unknown message type: " + in.Type)
			}
		}
	}
}
