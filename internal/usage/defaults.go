package usage

import "jobfit-backend/internal/users"

// Limits holds the plan ceilings and the daily fallback.
type Limits struct {
	Free         int
	Pro          int
	DailyDefault int
}

// DefaultLimits matches the product defaults.
func DefaultLimits() Limits {
	return Limits{Free: 5, Pro: 999999, DailyDefault: 70}
}

// PlanLimit returns the credit ceiling for a plan. NONE has no credits.
func (l Limits) PlanLimit(p users.Plan) int {
	switch p {
	case users.PlanFree:
		return l.Free
	case users.PlanPro:
		return l.Pro
	default:
		return 0
	}
}

// DailyLimit returns the account override or the default.
func (l Limits) DailyLimit(u users.User) int {
	if u.DailyResumeLimit > 0 {
		return u.DailyResumeLimit
	}
	return l.DailyDefault
}
