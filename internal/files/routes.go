package files

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"taskhive/internal/config"
	"taskhive/internal/identity"
)

// RegisterRoutes mounts the upload endpoints at the root of r. The
// caller is expected to wrap r in the auth middleware.
func RegisterRoutes(r chi.Router, store *Store, cfg config.UploadConfig) {
	r.Post("/", handleUpload(store, cfg))
	r.Get("/{fileID}", handleMeta(store))
	r.Get("/{fileID}/content", handleContent(store))
	r.Delete("/{fileID}", handleDelete(store))
}

// allowedName matches the filename against the configured patterns.
func allowedName(name string, patterns []string) bool {
	base := filepath.Base(name)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func handleUpload(store *Store, cfg config.UploadConfig) http.HandlerFunc {
	maxBytes := int64(cfg.MaxSizeMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		src, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"error":"multipart field 'file' is required"}`, http.StatusBadRequest)
			return
		}
		defer src.Close()

		if header.Filename == "" || !allowedName(header.Filename, cfg.Allowed) {
			http.Error(w, `{"error":"file type not allowed"}`, http.StatusUnsupportedMediaType)
			return
		}

		// Sniff the real content type from the leading bytes rather
		// than trusting the client's header.
		head := make([]byte, 3072)
		n, err := io.ReadFull(src, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			http.Error(w, `{"error":"reading upload"}`, http.StatusBadRequest)
			return
		}
		mtype := mimetype.Detect(head[:n])
		body := io.MultiReader(bytes.NewReader(head[:n]), src)

		saved, err := store.Save(r.Context(), filepath.Base(header.Filename), mtype.String(), userID, body)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(saved)
	}
}

func handleMeta(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := store.Get(r.Context(), chi.URLParam(r, "fileID"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if f == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f)
	}
}

func handleContent(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := store.Get(r.Context(), chi.URLParam(r, "fileID"))
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
		if f == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}

		blob, err := store.Open(f.ID)
		if err != nil {
			http.Error(w, `{"error":"blob missing"}`, http.StatusInternalServerError)
			return
		}
		defer blob.Close()

		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
		w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
		io.Copy(w, blob)
	}
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := identity.UserID(r.Context())
		if !ok {
			http.Error(w, `{"error":"missing credentials"}`, http.StatusUnauthorized)
			return
		}
		if err := store.Delete(r.Context(), chi.URLParam(r, "fileID"), userID); err != nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
