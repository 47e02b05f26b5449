package usage

import (
	"context"
	"errors"
	"time"

	"jobfit-backend/internal/users"
)

type memoryStore struct {
	repo *users.MemoryRepo
}

// NewMemoryStore applies quota mutations to an in-memory users repo.
func NewMemoryStore(repo *users.MemoryRepo) Store {
	return &memoryStore{repo: repo}
}

func (s *memoryStore) Rollover(ctx context.Context, userID string, today time.Time) (bool, error) {
	changed := false
	_, err := s.repo.Mutate(ctx, userID, func(u *users.User) error {
		if !IsNewDay(u.LastResumeDate, today) {
			return nil
		}
		d := today
		u.DailyResumeCount = 0
		u.LastResumeDate = &d
		changed = true
		return nil
	})
	return changed, err
}

func (s *memoryStore) Increment(ctx context.Context, userID string, today time.Time, limits Limits) (users.User, error) {
	u, err := s.repo.Mutate(ctx, userID, func(u *users.User) error {
		daily := u.DailyResumeCount
		if IsNewDay(u.LastResumeDate, today) {
			daily = 0
		}
		if !u.HasFullAccess || u.CreditsUsed >= limits.PlanLimit(u.Plan) || daily >= limits.DailyLimit(*u) {
			return ErrLimitReached
		}
		d := today
		u.CreditsUsed++
		u.DailyResumeCount = daily + 1
		u.LastResumeDate = &d
		return nil
	})
	if errors.Is(err, users.ErrNotFound) {
		return users.User{}, ErrLimitReached
	}
	return u, err
}

func (s *memoryStore) GrantPlan(ctx context.Context, userID string, plan users.Plan) (users.User, error) {
	return s.repo.Mutate(ctx, userID, func(u *users.User) error {
		u.Plan = plan
		u.HasFullAccess = true
		u.CreditsUsed = 0
		u.DailyResumeCount = 0
		return nil
	})
}

func (s *memoryStore) BackfillAccess(ctx context.Context) (int, error) {
	return s.repo.MutateAll(ctx, func(u *users.User) bool {
		if u.Plan != "" {
			return false
		}
		u.Plan = users.PlanNone
		u.HasFullAccess = false
		return true
	})
}
