package generatedresumes

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit-backend/internal/shared/storage/object"
	"jobfit-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC))
	return &Service{
		Repo:            NewMemoryRepo(),
		Store:           local.New(t.TempDir()),
		Clock:           mock,
		RetentionMonths: 5,
	}, mock
}

func TestSaveThenOpen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Save(ctx, Record{UserID: "u1", JobTitle: "Engineer", CompanyName: "Acme", MatchScore: 80, FileName: "Ada_Acme_Engineer_resume.docx"}, []byte("docx"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, int64(4), rec.SizeBytes)
	assert.Equal(t, object.DocxMIME, rec.MimeType)

	got, rc, err := svc.Open(ctx, "u1", rec.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "docx", string(data))
	assert.Equal(t, rec.ID, got.ID)

	_, _, err = svc.Open(ctx, "u2", rec.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = svc.Open(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenReportsMissingBytes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Save(ctx, Record{UserID: "u1", FileName: "r.docx"}, []byte("docx"))
	require.NoError(t, err)
	require.NoError(t, svc.Store.Delete(ctx, rec.StorageKey))

	_, _, err = svc.Open(ctx, "u1", rec.ID)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestPruneRemovesRecordsPastRetention(t *testing.T) {
	svc, mock := newTestService(t)
	ctx := context.Background()

	old, err := svc.Save(ctx, Record{UserID: "u1", FileName: "old.docx"}, []byte("old"))
	require.NoError(t, err)
	mock.Add(6 * 30 * 24 * time.Hour)
	fresh, err := svc.Save(ctx, Record{UserID: "u1", FileName: "new.docx"}, []byte("new"))
	require.NoError(t, err)

	n, err := svc.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Repo.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Repo.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = svc.Store.Open(ctx, old.StorageKey)
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestHistoryAndCounts(t *testing.T) {
	svc, mock := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Save(ctx, Record{UserID: "u1", FileName: "r.docx", MatchScore: 60 + i*10}, []byte("x"))
		require.NoError(t, err)
		mock.Add(time.Minute)
	}
	_, err := svc.Save(ctx, Record{FileName: "anon.docx", MatchScore: 90}, []byte("x"))
	require.NoError(t, err)

	hist, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, 80, hist[0].MatchScore)

	from := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	total, err := svc.Repo.CountBetween(ctx, from, to, "")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	mine, err := svc.Repo.CountBetween(ctx, from, to, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, mine)

	avg, err := svc.Repo.AverageMatchScore(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, avg, 0.001)

	n, err := svc.DeleteForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
