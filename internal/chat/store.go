package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/db"
)

// Store manages persistence of chat messages.
type Store struct {
	db *db.DB
}

// NewStore creates a new chat store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// RoomExists reports whether the room is known.
func (s *Store) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE id = ?`, roomID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking room: %w", err)
	}
	return n > 0, nil
}

// CreateMessage persists a message and its file attachments.
func (s *Store) CreateMessage(ctx context.Context, m Message) (*Message, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.SentAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, sender_id, content, sent_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.SenderID, m.Content, m.SentAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	for _, fileID := range m.FileIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_files (message_id, file_id) VALUES (?, ?)`,
			m.ID, fileID); err != nil {
			return nil, fmt.Errorf("attaching file: %w", err)
		}
	}
	if m.FileIDs == nil {
		m.FileIDs = []string{}
	}
	return &m, nil
}

// GetMessage retrieves a message scoped to its room. Returns nil when not found.
func (s *Store) GetMessage(ctx context.Context, roomID, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, sender_id, content, sent_at FROM messages WHERE id = ? AND room_id = ?`,
		id, roomID)
	var m Message
	err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.SentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	if m.FileIDs, err = s.fileIDs(ctx, m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) fileIDs(ctx context.Context, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_id FROM message_files WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// History returns the room's messages, newest first.
func (s *Store) History(ctx context.Context, roomID string, filter HistoryFilter) ([]Message, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	query := `SELECT id, room_id, sender_id, content, sent_at FROM messages WHERE room_id = ?`
	args := []any{roomID}
	if !filter.Before.IsZero() {
		query += ` AND sent_at < ?`
		args = append(args, filter.Before.UTC())
	}
	query += ` ORDER BY sent_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].FileIDs, err = s.fileIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteMessage removes a message when the caller authored it.
func (s *Store) DeleteMessage(ctx context.Context, roomID, id, senderID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND room_id = ? AND sender_id = ?`,
		id, roomID, senderID)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("message not found: %s", id)
	}
	return nil
}
