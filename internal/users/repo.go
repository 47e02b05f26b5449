package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRejected           = errors.New("account rejected")
	ErrMissingFields      = errors.New("missing required fields")
)

// Repo persists accounts. Quota counters are mutated through usage.Store,
// never through Repo.
type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, userID, name, email, phone string) (User, error)
	UpdatePhoto(ctx context.Context, userID, image string) error
	SetStatus(ctx context.Context, userID string, status Status) error
	TouchLogin(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context, limit int) ([]User, error)
	Count(ctx context.Context) (int, error)
}
