package usage

import (
	"fmt"
	"time"

	"jobfit-backend/internal/users"
)

// Reason classifies an access denial.
type Reason string

const (
	ReasonRestricted Reason = "access_restricted"
	ReasonDailyLimit Reason = "daily_limit"
	ReasonPlanLimit  Reason = "plan_limit"
)

// Denial is returned by the gate when a user may not generate. Title is the
// short error string shown to clients, Message the explanation.
type Denial struct {
	Reason  Reason
	Title   string
	Message string
}

func (d *Denial) Error() string { return d.Title + ": " + d.Message }

func restricted() *Denial {
	return &Denial{
		Reason:  ReasonRestricted,
		Title:   "Access Restricted",
		Message: "Your account is approved but doesn't have resume generation access yet.",
	}
}

func dailyLimitReached(limit int) *Denial {
	return &Denial{
		Reason:  ReasonDailyLimit,
		Title:   "Daily limit reached",
		Message: fmt.Sprintf("You have reached your daily limit of %d resumes. Please try again tomorrow.", limit),
	}
}

func planLimitReached(plan users.Plan, limit int) *Denial {
	return &Denial{
		Reason:  ReasonPlanLimit,
		Title:   "Plan limit reached",
		Message: fmt.Sprintf("You have used all %d credits of your %s plan. Please upgrade to continue.", limit, plan),
	}
}

// Snapshot is the quota view of one account as of today.
type Snapshot struct {
	Plan             users.Plan `json:"plan"`
	PlanLimit        int        `json:"planLimit"`
	CreditsUsed      int        `json:"creditsUsed"`
	DailyResumeCount int        `json:"dailyResumeCount"`
	DailyCountToday  int        `json:"dailyCountToday"`
	DailyResumeLimit int        `json:"dailyResumeLimit"`
	HasFullAccess    bool       `json:"hasFullAccess"`
	LastResumeDate   *time.Time `json:"lastResumeDate"`
}
