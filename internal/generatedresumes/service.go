package generatedresumes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"jobfit-backend/internal/shared/storage/object"
	"jobfit-backend/internal/shared/telemetry"
)

const historyLimit = 100

// Service stores generated documents and their records.
type Service struct {
	Repo            Repo
	Store           object.Store
	Clock           clock.Clock
	RetentionMonths int
}

func NewService(repo Repo, store object.Store, retentionMonths int) *Service {
	return &Service{Repo: repo, Store: store, Clock: clock.New(), RetentionMonths: retentionMonths}
}

// Save uploads doc and writes the record. The record is only written once the
// bytes are durable.
func (s *Service) Save(ctx context.Context, rec Record, doc []byte) (Record, error) {
	if s.Repo == nil || s.Store == nil {
		return Record{}, errors.New("missing dependencies")
	}
	if strings.TrimSpace(rec.FileName) == "" {
		return Record{}, ErrInvalidInput
	}
	contentType := rec.MimeType
	if contentType == "" {
		contentType = object.DocxMIME
	}
	obj, err := s.Store.Put(ctx, rec.UserID, rec.FileName, contentType, bytes.NewReader(doc))
	if err != nil {
		return Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusSuccess
	}
	rec.StorageKey = obj.Key
	rec.SizeBytes = obj.SizeBytes
	rec.MimeType = obj.MimeType
	rec.CreatedAt = s.now()

	if err := s.Repo.Create(ctx, rec); err != nil {
		if delErr := s.Store.Delete(ctx, obj.Key); delErr != nil {
			telemetry.Warn("generatedresumes.orphan_object", map[string]any{"key": obj.Key, "error": delErr})
		}
		return Record{}, err
	}
	return rec, nil
}

// Open returns the record and its bytes if userID owns it.
func (s *Service) Open(ctx context.Context, userID, id string) (Record, io.ReadCloser, error) {
	if userID == "" || id == "" {
		return Record{}, nil, ErrInvalidInput
	}
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, nil, err
	}
	if rec.UserID != userID {
		return Record{}, nil, ErrForbidden
	}
	if rec.StorageKey == "" {
		return Record{}, nil, ErrNoDocument
	}
	rc, err := s.Store.Open(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Record{}, nil, ErrNoDocument
		}
		return Record{}, nil, err
	}
	return rec, rc, nil
}

// History returns a user's latest records, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, historyLimit)
}

// DeleteForUser removes a user's records and their stored documents.
func (s *Service) DeleteForUser(ctx context.Context, userID string) (int, error) {
	keys, err := s.Repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.RemoveObjects(ctx, keys)
	return len(keys), nil
}

// Prune deletes records older than the retention window and their documents.
func (s *Service) Prune(ctx context.Context) (int, error) {
	months := s.RetentionMonths
	if months <= 0 {
		months = 5
	}
	cutoff := s.now().AddDate(0, -months, 0)
	keys, err := s.Repo.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.RemoveObjects(ctx, keys)
	telemetry.Info("generatedresumes.pruned", map[string]any{"count": len(keys), "cutoff": cutoff.Format(time.RFC3339)})
	return len(keys), nil
}

// RemoveObjects deletes stored documents. Failures are logged; the rows are
// already gone at this point.
func (s *Service) RemoveObjects(ctx context.Context, keys []string) {
	if err := object.DeleteAll(ctx, s.Store, keys); err != nil {
		telemetry.Warn("generatedresumes.object_delete_failed", map[string]any{
			"keys":     len(keys),
			"failures": len(multierr.Errors(err)),
			"error":    err,
		})
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
