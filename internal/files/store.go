package files

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/db"
)

// File is stored metadata for an uploaded blob. The blob itself lives
// on disk under the store's root directory, named by the file id.
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploaderID  string    `json:"uploader_id,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store manages upload metadata and the blobs on disk.
type Store struct {
	db   *db.DB
	root string
}

// NewStore creates a file store writing blobs under root.
func NewStore(database *db.DB, root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{db: database, root: root}, nil
}

func (s *Store) blobPath(id string) string {
	return filepath.Join(s.root, id)
}

// Save streams the blob to disk and records its metadata.
func (s *Store) Save(ctx context.Context, name, contentType, uploaderID string, src io.Reader) (*File, error) {
	f := File{
		ID:          uuid.New().String(),
		Name:        name,
		ContentType: contentType,
		UploaderID:  uploaderID,
		UploadedAt:  time.Now().UTC(),
	}

	dst, err := os.Create(s.blobPath(f.ID))
	if err != nil {
		return nil, fmt.Errorf("creating blob: %w", err)
	}
	f.Size, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(s.blobPath(f.ID))
		return nil, fmt.Errorf("writing blob: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO files (id, name, content_type, size, path, uploader_id, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.ContentType, f.Size, s.blobPath(f.ID), f.UploaderID, f.UploadedAt,
	)
	if err != nil {
		os.Remove(s.blobPath(f.ID))
		return nil, fmt.Errorf("inserting file: %w", err)
	}
	return &f, nil
}

// Get retrieves file metadata. Returns nil when not found.
func (s *Store) Get(ctx context.Context, id string) (*File, error) {
	var f File
	var uploader sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, content_type, size, uploader_id, uploaded_at FROM files WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.Name, &f.ContentType, &f.Size, &uploader, &f.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}
	f.UploaderID = uploader.String
	return &f, nil
}

// Open returns a reader over the blob. The caller closes it.
func (s *Store) Open(id string) (io.ReadCloser, error) {
	return os.Open(s.blobPath(id))
}

// Delete removes the metadata row and the blob. Only the uploader may
// delete their file.
func (s *Store) Delete(ctx context.Context, id, uploaderID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM files WHERE id = ? AND uploader_id = ?`, id, uploaderID)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("file not found: %s", id)
	}
	if err := os.Remove(s.blobPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}
