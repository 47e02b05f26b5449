package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"jobfit-backend/internal/generatedresumes"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

const (
	dashboardRecentLimit = 1000
	dashboardUserLimit   = 10000
)

var (
	ErrNotConfigured = errors.New("admin password not configured")
	ErrBadPassword   = errors.New("invalid password")
	ErrInvalidPlan   = errors.New("invalid plan")
)

// Service backs the admin console.
type Service struct {
	Password string
	Users    *users.Service
	Records  *generatedresumes.Service
	Ledger   *usage.Ledger
}

// Dashboard is the overview shown on the admin landing page.
type Dashboard struct {
	TotalResumes      int                       `json:"totalResumes"`
	TotalUsers        int                       `json:"totalUsers"`
	AverageMatchScore float64                   `json:"averageMatchScore"`
	Pruned            int                       `json:"pruned"`
	Recent            []generatedresumes.Record `json:"resumes"`
	Users             []users.User              `json:"users"`
}

// Authenticate checks the shared admin password.
func (s *Service) Authenticate(password string) error {
	if s.Password == "" {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.Password)) != 1 {
		return ErrBadPassword
	}
	return nil
}

// Dashboard prunes expired records first; a failed prune is logged and ignored.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	pruned, err := s.Records.Prune(ctx)
	if err != nil {
		telemetry.Warn("admin.prune_failed", map[string]any{"error": err})
	}

	repo := s.Records.Repo
	var d Dashboard
	d.Pruned = pruned
	if d.TotalResumes, err = repo.CountAll(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.AverageMatchScore, err = repo.AverageMatchScore(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Recent, err = repo.ListRecent(ctx, dashboardRecentLimit); err != nil {
		return Dashboard{}, err
	}
	if d.TotalUsers, err = s.Users.Repo.Count(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.Users, err = s.Users.Repo.List(ctx, dashboardUserLimit); err != nil {
		return Dashboard{}, err
	}
	if d.Recent == nil {
		d.Recent = []generatedresumes.Record{}
	}
	if d.Users == nil {
		d.Users = []users.User{}
	}
	return d, nil
}

// GrantPlan gives a user a paid or free plan with full access and fresh counters.
func (s *Service) GrantPlan(ctx context.Context, userID, rawPlan string) (users.User, error) {
	plan, ok := users.ParsePlan(strings.TrimSpace(rawPlan))
	if !ok {
		return users.User{}, ErrInvalidPlan
	}
	u, err := s.Ledger.GrantPlan(ctx, strings.TrimSpace(userID), plan)
	if err != nil {
		return users.User{}, err
	}
	telemetry.Info("admin.plan_granted", map[string]any{"user_id": u.ID, "plan": string(plan)})
	return u, nil
}

func (s *Service) ReviewUser(ctx context.Context, userID, action string) (users.Status, error) {
	status, err := s.Users.Review(ctx, strings.TrimSpace(userID), action)
	if err != nil {
		return "", err
	}
	telemetry.Info("admin.user_reviewed", map[string]any{"user_id": userID, "status": string(status)})
	return status, nil
}
