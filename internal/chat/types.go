package chat

import "time"

// Message is a chat message in a project room.
type Message struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	SenderID string    `json:"sender_id"`
	Content  string    `json:"content"`
	FileIDs  []string  `json:"file_ids"`
	SentAt   time.Time `json:"sent_at"`
}

// HistoryFilter pages through a room's messages.
type HistoryFilter struct {
	Limit  int
	Offset int
	Before time.Time // zero means no upper bound
}
