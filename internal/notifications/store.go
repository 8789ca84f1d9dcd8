package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/db"
)

// Store manages persistence of user notifications.
type Store struct {
	db *db.DB
}

// NewStore creates a new notification store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a notification for a user.
func (s *Store) Create(ctx context.Context, userID, content string) (*Notification, error) {
	n := Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.UserID, n.Content, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting notification: %w", err)
	}
	return &n, nil
}

// List returns the user's notifications, newest first.
func (s *Store) List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	query := `SELECT id, user_id, content, is_read, created_at FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if filter.UnreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Get retrieves one of the user's notifications. Returns nil when not found
// or owned by someone else.
func (s *Store) Get(ctx context.Context, userID, id string) (*Notification, error) {
	var n Notification
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, content, is_read, created_at FROM notifications WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&n.ID, &n.UserID, &n.Content, &n.IsRead, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return &n, nil
}

// MarkRead sets the read flag on one of the user's notifications.
func (s *Store) MarkRead(ctx context.Context, userID, id string, read bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`,
		read, id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating notification: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}
	return nil
}

// MarkAllRead marks every unread notification for the user as read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return fmt.Errorf("marking all read: %w", err)
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID,
	).Scan(&count)
	return count, err
}

// webhookURL returns the user's configured webhook, if any.
func (s *Store) webhookURL(ctx context.Context, userID string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT webhook_url FROM users WHERE id = ?`, userID,
	).Scan(&url)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return url, err
}
