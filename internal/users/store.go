package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/db"
)

// ErrDuplicate is returned when a username or email is already taken.
var ErrDuplicate = errors.New("username or email already exists")

// Store manages persistence of user accounts.
type Store struct {
	db *db.DB
}

// NewStore creates a new user store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new user with the given password hash.
func (s *Store) Create(ctx context.Context, u User, passwordHash string) (*User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, passwordHash, u.FirstName, u.LastName, u.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a user by ID. Returns nil when not found.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	return s.get(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by username. Returns nil when not found.
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.get(ctx, "username = ?", username)
}

func (s *Store) get(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	var avatar sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, first_name, last_name, avatar_file_id, webhook_url, created_at
		 FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &avatar, &u.WebhookURL, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.AvatarFileID = avatar.String
	return &u, nil
}

// Credentials returns the user ID and password hash for a username.
// Returns empty values when the user does not exist.
func (s *Store) Credentials(ctx context.Context, username string) (id, hash string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = ?`, username,
	).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("getting credentials: %w", err)
	}
	return id, hash, nil
}

// List returns summaries of all users ordered by username.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, avatar_file_id FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var u Summary
		var avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &avatar); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.AvatarFileID = avatar.String
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile applies the non-nil fields of upd to the user's row.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *upd.FirstName)
	}
	if upd.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *upd.LastName)
	}
	if upd.AvatarFileID != nil {
		sets = append(sets, "avatar_file_id = ?")
		args = append(args, *upd.AvatarFileID)
	}
	if upd.WebhookURL != nil {
		sets = append(sets, "webhook_url = ?")
		args = append(args, *upd.WebhookURL)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicate
		}
		return fmt.Errorf("updating profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}
