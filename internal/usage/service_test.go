package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit-backend/internal/users"
)

func seedUser(t *testing.T, repo *users.MemoryRepo, u users.User) users.User {
	t.Helper()
	if u.ID == "" {
		u.ID = "user-1"
	}
	if u.Email == "" {
		u.Email = u.ID + "@example.com"
	}
	created, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func newTestLedger(t *testing.T) (*Ledger, *users.MemoryRepo) {
	t.Helper()
	gate, _ := newTestGate()
	repo := users.NewMemoryRepo()
	return NewLedger(NewMemoryStore(repo), gate), repo
}

func TestRolloverThenIncrementScenarioC(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	u := seedUser(t, repo, users.User{
		HasFullAccess:    true,
		Plan:             users.PlanFree,
		CreditsUsed:      1,
		DailyResumeCount: 3,
		DailyResumeLimit: 50,
		LastResumeDate:   day(2026, time.May, 3),
	})

	require.NoError(t, ledger.Gate.Evaluate(&u))
	require.NoError(t, ledger.Rollover(ctx, u))
	after, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.DailyResumeCount)

	updated, err := ledger.Increment(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.DailyResumeCount)
	assert.Equal(t, 2, updated.CreditsUsed)
	require.NotNil(t, updated.LastResumeDate)
	assert.True(t, updated.LastResumeDate.Equal(*day(2026, time.May, 4)))
}

func TestRolloverIsNoopOnSameDay(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	u := seedUser(t, repo, users.User{HasFullAccess: true, Plan: users.PlanPro, DailyResumeCount: 4, LastResumeDate: day(2026, time.May, 4)})

	require.NoError(t, ledger.Rollover(ctx, u))
	require.NoError(t, ledger.Rollover(ctx, u))
	after, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, after.DailyResumeCount)
}

func TestIncrementNTimesAddsNAndStopsAtPlanLimit(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	u := seedUser(t, repo, users.User{HasFullAccess: true, Plan: users.PlanFree, CreditsUsed: 2})

	for i := 0; i < 3; i++ {
		_, err := ledger.Increment(ctx, u.ID)
		require.NoError(t, err)
	}
	after, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.CreditsUsed)
	assert.Equal(t, 3, after.DailyResumeCount)

	_, err = ledger.Increment(ctx, u.ID)
	assert.ErrorIs(t, err, ErrLimitReached)
	after, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.CreditsUsed)
}

func TestConcurrentIncrementsNeverExceedLimit(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	u := seedUser(t, repo, users.User{HasFullAccess: true, Plan: users.PlanFree})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.Increment(ctx, u.ID)
		}()
	}
	wg.Wait()

	after, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.CreditsUsed)
}

func TestIncrementRejectsRestrictedAndMissing(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	u := seedUser(t, repo, users.User{Plan: users.PlanPro})

	_, err := ledger.Increment(ctx, u.ID)
	assert.ErrorIs(t, err, ErrLimitReached)
	_, err = ledger.Increment(ctx, "ghost")
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestGrantPlanIsIdempotent(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	u := seedUser(t, repo, users.User{Plan: users.PlanFree, CreditsUsed: 5, DailyResumeCount: 9, LastResumeDate: day(2026, time.May, 4)})

	once, err := ledger.GrantPlan(ctx, u.ID, users.PlanPro)
	require.NoError(t, err)
	twice, err := ledger.GrantPlan(ctx, u.ID, users.PlanPro)
	require.NoError(t, err)

	for _, got := range []users.User{once, twice} {
		assert.Equal(t, users.PlanPro, got.Plan)
		assert.True(t, got.HasFullAccess)
		assert.Equal(t, 0, got.CreditsUsed)
		assert.Equal(t, 0, got.DailyResumeCount)
	}
	assert.Equal(t, once.LastResumeDate, twice.LastResumeDate)

	_, err = ledger.GrantPlan(ctx, "ghost", users.PlanPro)
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestBackfillAccess(t *testing.T) {
	ledger, repo := newTestLedger(t)
	seedUser(t, repo, users.User{ID: "legacy", HasFullAccess: true})
	seedUser(t, repo, users.User{ID: "current", Plan: users.PlanFree, HasFullAccess: true})

	n, err := ledger.BackfillAccess(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	legacy, err := repo.GetByID(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, users.PlanNone, legacy.Plan)
	assert.False(t, legacy.HasFullAccess)
}
