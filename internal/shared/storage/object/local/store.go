package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jobfit-backend/internal/shared/storage/object"
)

// Store keeps documents under a directory on disk. Used in dev and by the
// single-box deployment.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Put writes through a temp file and renames it into place, so a reader
// never sees a partial document.
func (s *Store) Put(ctx context.Context, owner, fileName, contentType string, r io.Reader) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}
	key, err := object.NewKey(owner, fileName)
	if err != nil {
		return object.Object{}, fmt.Errorf("storage key: %w", err)
	}
	dest, err := s.path(key)
	if err != nil {
		return object.Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return object.Object{}, fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return object.Object{}, fmt.Errorf("create temp: %w", err)
	}
	size, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		return object.Object{}, fmt.Errorf("write %s: %w", key, errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return object.Object{}, fmt.Errorf("rename %s: %w", key, err)
	}

	if contentType == "" {
		contentType = object.DocxMIME
	}
	return object.Object{Key: key, SizeBytes: size, MimeType: contentType}, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, object.ErrNotFound
	case err != nil:
		return nil, err
	}
	return f, nil
}

// Delete removes a document. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// path maps a key into root, refusing anything that would escape it.
func (s *Store) path(key string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimSpace(key)))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}

var _ object.Store = (*Store)(nil)
