package generatedresumes

import (
	"context"
	"time"
)

// Repo defines persistence operations for generation records.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	// CountBetween counts SUCCESS records created in [from, to); an empty
	// userID counts every user.
	CountBetween(ctx context.Context, from, to time.Time, userID string) (int, error)
	CountAll(ctx context.Context) (int, error)
	AverageMatchScore(ctx context.Context) (float64, error)
	// DeleteByUser and PruneBefore return the storage keys of deleted rows.
	DeleteByUser(ctx context.Context, userID string) ([]string, error)
	PruneBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
