package notifications

import "time"

// Notification is a short message delivered to a single user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter controls which notifications to return.
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
