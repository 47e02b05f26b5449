package users

import (
	"context"
	"errors"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"jobfit-backend/internal/shared/auth"
)

// DefaultDailyLimit is stored on accounts created through Google login.
const DefaultDailyLimit = 70

type Service struct {
	Repo  Repo
	Clock clock.Clock
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Clock: clock.New()}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Signup creates a password account. New accounts start without a plan and
// without generation access until an admin grants one.
func (s *Service) Signup(ctx context.Context, in SignupInput) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return User{}, ErrMissingFields
	}
	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	return s.Repo.Create(ctx, User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
		Status:       StatusActive,
		Plan:         PlanNone,
	})
}

// Login checks credentials and records the login time.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Status == StatusRejected {
		return User{}, ErrRejected
	}
	now := s.clock().Now().UTC()
	if err := s.Repo.TouchLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLoginAt = &now
	return user, nil
}

// UpsertFromOAuth returns the account for a verified Google identity,
// creating it on first login. Existing accounts keep their plan and counters.
func (s *Service) UpsertFromOAuth(ctx context.Context, email, name, picture string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = normalizeEmail(email)
	if email == "" {
		return User{}, ErrMissingFields
	}
	now := s.clock().Now().UTC()
	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		if err := s.Repo.TouchLogin(ctx, user.ID, now); err != nil {
			return User{}, err
		}
		user.LastLoginAt = &now
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	return s.Repo.Create(ctx, User{
		ID:               uuid.NewString(),
		Email:            email,
		Name:             strings.TrimSpace(name),
		ProfileImage:     picture,
		Status:           StatusApproved,
		Plan:             PlanFree,
		HasFullAccess:    false,
		DailyResumeLimit: DefaultDailyLimit,
		LastLoginAt:      &now,
	})
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID, name, email, phone string) (User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return User{}, ErrMissingFields
	}
	return s.Repo.UpdateProfile(ctx, userID, name, email, strings.TrimSpace(phone))
}

func (s *Service) UpdatePhoto(ctx context.Context, userID, image string) error {
	if strings.TrimSpace(image) == "" {
		return ErrMissingFields
	}
	return s.Repo.UpdatePhoto(ctx, userID, image)
}

// Review approves or rejects an account.
func (s *Service) Review(ctx context.Context, userID, action string) (Status, error) {
	var status Status
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "APPROVE":
		status = StatusApproved
	case "REJECT":
		status = StatusRejected
	default:
		return "", ErrMissingFields
	}
	if err := s.Repo.SetStatus(ctx, userID, status); err != nil {
		return "", err
	}
	return status, nil
}

func (s *Service) clock() clock.Clock {
	if s.Clock == nil {
		return clock.New()
	}
	return s.Clock
}
