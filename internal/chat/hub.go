package chat

import (
	"sync"

	"github.com/rs/zerolog"
)

// client is one websocket connection in a room.
type client struct {
	userID string
	send   chan []byte
}

// Hub tracks the live connections per room and fans messages out to
// them. A client whose send buffer is full is dropped rather than
// allowed to stall the room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]bool
	log   zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: map[string]map[*client]bool{},
		log:   log,
	}
}

func (h *Hub) join(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = map[*client]bool{}
		h.rooms[roomID] = room
	}
	room[c] = true
}

func (h *Hub) leave(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if room[c] {
		delete(room, c)
		close(c.send)
	}
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// broadcast delivers payload to every client in the room except those
// whose user id equals exclude. Pass exclude="" to reach everyone.
func (h *Hub) broadcast(roomID string, payload []byte, exclude string) {
	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[roomID] {
		if exclude != "" && c.userID == exclude {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("room", roomID).Str("user", c.userID).Msg("dropping slow chat client")
		h.leave(roomID, c)
	}
}

// Occupants returns the distinct user ids currently connected to the room.
func (h *Hub) Occupants(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[string]bool{}
	out := []string{}
	for c := range h.rooms[roomID] {
		if !seen[c.userID] {
			seen[c.userID] = true
			out = append(out, c.userID)
		}
	}
	return out
}
