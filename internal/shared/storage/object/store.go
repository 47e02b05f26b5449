package object

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"jobfit-backend/internal/shared/util"
)

// DocxMIME is the content type of every generated resume.
const DocxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored artifact.
type Object struct {
	Key       string
	SizeBytes int64
	MimeType  string
}

// Store persists generated documents.
type Store interface {
	Put(ctx context.Context, owner, fileName, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// BatchDeleter is implemented by stores that can remove many keys per call.
type BatchDeleter interface {
	DeleteMany(ctx context.Context, keys []string) error
}

// DeleteAll removes keys, batching when the store supports it. Empty keys are
// skipped and every failure is reported.
func DeleteAll(ctx context.Context, store Store, keys []string) error {
	live := keys[:0:0]
	for _, k := range keys {
		if k != "" {
			live = append(live, k)
		}
	}
	if len(live) == 0 {
		return nil
	}
	if b, ok := store.(BatchDeleter); ok {
		return b.DeleteMany(ctx, live)
	}
	var errs error
	for _, k := range live {
		errs = multierr.Append(errs, store.Delete(ctx, k))
	}
	return errs
}

// NewKey builds "generated/<owner>/<uuid>_<file>".
func NewKey(owner, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join("generated", util.OwnerKey(owner), uuid.NewString()+"_"+name), nil
}
