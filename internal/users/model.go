package users

import (
	"strings"
	"time"
)

// Status is the approval state of an account.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusActive   Status = "ACTIVE"
	StatusRejected Status = "REJECTED"
)

// Plan is the subscription tier that sets the credit ceiling.
type Plan string

const (
	PlanNone Plan = "NONE"
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

// ParsePlan accepts the plans an admin may grant.
func ParsePlan(raw string) (Plan, bool) {
	switch Plan(raw) {
	case PlanFree, PlanPro:
		return Plan(raw), true
	}
	return "", false
}

// User is an account together with its quota counters.
//
// LastResumeDate is a calendar date stored as midnight UTC; only its
// year/month/day are meaningful. DailyResumeLimit of 0 means "use the
// deployment default".
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	ProfileImage     string     `json:"profileImage,omitempty"`
	PasswordHash     string     `json:"-"`
	Status           Status     `json:"status"`
	Plan             Plan       `json:"plan"`
	HasFullAccess    bool       `json:"hasFullAccess"`
	CreditsUsed      int        `json:"creditsUsed"`
	DailyResumeCount int        `json:"dailyResumeCount"`
	DailyResumeLimit int        `json:"dailyResumeLimit"`
	LastResumeDate   *time.Time `json:"lastResumeDate"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// DisplayName is the name used in generated file names.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
