package usage

import (
	"context"
	"time"

	"jobfit-backend/internal/users"
)

// Store applies quota mutations to account rows. Every method is a single
// storage-level operation so concurrent requests cannot lose updates.
type Store interface {
	// Rollover zeroes the daily counter if lastResumeDate is before today.
	Rollover(ctx context.Context, userID string, today time.Time) (bool, error)
	// Increment adds one credit and one daily generation only when the account
	// has full access and both counters are below their limits.
	Increment(ctx context.Context, userID string, today time.Time, limits Limits) (users.User, error)
	GrantPlan(ctx context.Context, userID string, plan users.Plan) (users.User, error)
	// BackfillAccess restricts accounts that predate plans.
	BackfillAccess(ctx context.Context) (int, error)
}

// Ledger owns quota bookkeeping for generations.
type Ledger struct {
	Store Store
	Gate  *Gate
}

func NewLedger(store Store, gate *Gate) *Ledger {
	return &Ledger{Store: store, Gate: gate}
}

// Rollover persists the day reset when u's last generation was before today.
// It is a no-op on the same day and safe to repeat.
func (l *Ledger) Rollover(ctx context.Context, u users.User) error {
	today := l.Gate.Today()
	if !IsNewDay(u.LastResumeDate, today) {
		return nil
	}
	_, err := l.Store.Rollover(ctx, u.ID, today)
	return err
}

// Increment records one successful generation.
func (l *Ledger) Increment(ctx context.Context, userID string) (users.User, error) {
	return l.Store.Increment(ctx, userID, l.Gate.Today(), l.Gate.Limits)
}

// GrantPlan sets the plan, enables access and zeroes both counters.
// Granting the same plan twice leaves the same state.
func (l *Ledger) GrantPlan(ctx context.Context, userID string, plan users.Plan) (users.User, error) {
	return l.Store.GrantPlan(ctx, userID, plan)
}

func (l *Ledger) BackfillAccess(ctx context.Context) (int, error) {
	return l.Store.BackfillAccess(ctx)
}
