package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"taskhive/internal/db"
)

// RefreshStore persists opaque refresh tokens. Only a SHA-256 digest of the
// token is stored.
type RefreshStore struct {
	db  *db.DB
	ttl time.Duration
}

// NewRefreshStore creates a refresh token store with the given token lifetime.
func NewRefreshStore(database *db.DB, ttl time.Duration) *RefreshStore {
	return &RefreshStore{db: database, ttl: ttl}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a new refresh token for the user and returns the plain value.
func (s *RefreshStore) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := hex.EncodeToString(buf)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		hashToken(token), userID, time.Now().UTC().Add(s.ttl),
	)
	if err != nil {
		return "", fmt.Errorf("inserting refresh token: %w", err)
	}
	return token, nil
}

// Rotate revokes the presented token and issues a new one for the same user.
// Returns ErrInvalidToken if the token is unknown, expired, or revoked.
func (s *RefreshStore) Rotate(ctx context.Context, token string) (userID, newToken string, err error) {
	userID, err = s.lookup(ctx, token)
	if err != nil {
		return "", "", err
	}
	if err := s.Revoke(ctx, token); err != nil {
		return "", "", err
	}
	newToken, err = s.Create(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return userID, newToken, nil
}

// Revoke blacklists the presented token. Unknown tokens are rejected.
func (s *RefreshStore) Revoke(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ? AND revoked = 0`,
		hashToken(token),
	)
	if err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *RefreshStore) lookup(ctx context.Context, token string) (string, error) {
	var userID string
	var expiresAt time.Time
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, revoked FROM refresh_tokens WHERE token_hash = ?`,
		hashToken(token),
	).Scan(&userID, &expiresAt, &revoked)
	if err == sql.ErrNoRows {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("looking up refresh token: %w", err)
	}
	if revoked || time.Now().UTC().After(expiresAt) {
		return "", ErrInvalidToken
	}
	return userID, nil
}
