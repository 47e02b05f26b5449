package generatedresumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores generation records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Record)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	return r.list(ctx, limit, func(rec Record) bool { return rec.UserID == userID })
}

func (r *MemoryRepo) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return r.list(ctx, limit, func(Record) bool { return true })
}

func (r *MemoryRepo) CountBetween(ctx context.Context, from, to time.Time, userID string) (int, error) {
	recs, err := r.list(ctx, 0, func(rec Record) bool {
		if rec.Status != StatusSuccess || (userID != "" && rec.UserID != userID) {
			return false
		}
		return !rec.CreatedAt.Before(from) && rec.CreatedAt.Before(to)
	})
	return len(recs), err
}

func (r *MemoryRepo) CountAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *MemoryRepo) AverageMatchScore(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.byID) == 0 {
		return 0, nil
	}
	sum := 0
	for _, rec := range r.byID {
		sum += rec.MatchScore
	}
	return float64(sum) / float64(len(r.byID)), nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	return r.deleteWhere(ctx, func(rec Record) bool { return rec.UserID == userID })
}

func (r *MemoryRepo) PruneBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return r.deleteWhere(ctx, func(rec Record) bool { return rec.CreatedAt.Before(cutoff) })
}

func (r *MemoryRepo) list(ctx context.Context, limit int, keep func(Record) bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Record, 0)
	for _, rec := range r.byID {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) deleteWhere(ctx context.Context, match func(Record) bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for id, rec := range r.byID {
		if match(rec) {
			if rec.StorageKey != "" {
				keys = append(keys, rec.StorageKey)
			}
			delete(r.byID, id)
		}
	}
	return keys, nil
}

var _ Repo = (*MemoryRepo)(nil)
