package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = normalizeEmail(user.Email)
	if r.emailTakenLocked(user.Email, "") {
		return User{}, ErrEmailTaken
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = normalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) UpdateProfile(ctx context.Context, userID, name, email, phone string) (User, error) {
	email = normalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTakenLocked(email, userID) {
		return User{}, ErrEmailTaken
	}
	return r.mutateLocked(ctx, userID, func(u *User) error {
		u.Name = name
		u.Email = email
		u.Phone = phone
		return nil
	})
}

func (r *MemoryRepo) UpdatePhoto(ctx context.Context, userID, image string) error {
	_, err := r.Mutate(ctx, userID, func(u *User) error {
		u.ProfileImage = image
		return nil
	})
	return err
}

func (r *MemoryRepo) SetStatus(ctx context.Context, userID string, status Status) error {
	_, err := r.Mutate(ctx, userID, func(u *User) error {
		u.Status = status
		return nil
	})
	return err
}

func (r *MemoryRepo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.Mutate(ctx, userID, func(u *User) error {
		t := at.UTC()
		u.LastLoginAt = &t
		return nil
	})
	return err
}

func (r *MemoryRepo) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, limit int) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

// Mutate applies fn to the stored user under the write lock. If fn returns an
// error the stored user is left untouched.
func (r *MemoryRepo) Mutate(ctx context.Context, userID string, fn func(*User) error) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutateLocked(ctx, userID, fn)
}

// MutateAll applies fn to every stored user and returns how many it changed.
func (r *MemoryRepo) MutateAll(ctx context.Context, fn func(*User) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for id, u := range r.users {
		if fn(&u) {
			u.UpdatedAt = time.Now().UTC()
			r.users[id] = u
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryRepo) mutateLocked(ctx context.Context, userID string, fn func(*User) error) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	if err := fn(&user); err != nil {
		return User{}, err
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[userID] = user
	return user, nil
}

func (r *MemoryRepo) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
