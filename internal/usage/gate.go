package usage

import (
	"time"

	"github.com/benbjohnson/clock"

	"jobfit-backend/internal/users"
)

// Gate decides whether an account may start a generation.
type Gate struct {
	Clock    clock.Clock
	Location *time.Location
	Limits   Limits
}

func NewGate(clk clock.Clock, loc *time.Location, limits Limits) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Gate{Clock: clk, Location: loc, Limits: limits}
}

// Today is the current calendar date in the gate's zone, as midnight UTC.
func (g *Gate) Today() time.Time {
	return CalendarDay(g.Clock.Now(), g.Location)
}

// CalendarDay truncates t to its date in loc and re-expresses it as midnight UTC.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsNewDay reports whether last is unset or falls on a date before today.
func IsNewDay(last *time.Time, today time.Time) bool {
	if last == nil {
		return true
	}
	y, m, d := last.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Before(today)
}

// Evaluate returns nil when the caller may generate, or a *Denial.
// A nil user is anonymous and always allowed.
func (g *Gate) Evaluate(u *users.User) error {
	if u == nil {
		return nil
	}
	if !u.HasFullAccess {
		return restricted()
	}
	snap := g.Snapshot(*u)
	if snap.DailyCountToday >= snap.DailyResumeLimit {
		return dailyLimitReached(snap.DailyResumeLimit)
	}
	if snap.CreditsUsed >= snap.PlanLimit {
		return planLimitReached(snap.Plan, snap.PlanLimit)
	}
	return nil
}

// Snapshot computes the account's quota view for today without mutating it.
func (g *Gate) Snapshot(u users.User) Snapshot {
	daily := u.DailyResumeCount
	if IsNewDay(u.LastResumeDate, g.Today()) {
		daily = 0
	}
	return Snapshot{
		Plan:             u.Plan,
		PlanLimit:        g.Limits.PlanLimit(u.Plan),
		CreditsUsed:      u.CreditsUsed,
		DailyResumeCount: u.DailyResumeCount,
		DailyCountToday:  daily,
		DailyResumeLimit: g.Limits.DailyLimit(u),
		HasFullAccess:    u.HasFullAccess,
		LastResumeDate:   u.LastResumeDate,
	}
}
