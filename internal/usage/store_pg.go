package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobfit-backend/internal/users"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed quota store over the users table.
func NewPGStore(db *sql.DB) Store {
	return &pgStore{DB: db}
}

func dateParam(day time.Time) string {
	return day.Format("2006-01-02")
}

func (s *pgStore) Rollover(ctx context.Context, userID string, today time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
UPDATE users SET daily_resume_count = 0, last_resume_date = $2, updated_at = now()
WHERE id = $1 AND (last_resume_date IS NULL OR last_resume_date < $2)`, userID, dateParam(today))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const incrementQuery = `
UPDATE users SET
  credits_used = credits_used + 1,
  daily_resume_count = CASE
    WHEN last_resume_date IS NULL OR last_resume_date < $2 THEN 1
    ELSE daily_resume_count + 1 END,
  last_resume_date = $2,
  updated_at = now()
WHERE id = $1
  AND has_full_access
  AND credits_used < CASE COALESCE(plan, 'NONE') WHEN 'FREE' THEN $3 WHEN 'PRO' THEN $4 ELSE 0 END
  AND (CASE WHEN last_resume_date IS NULL OR last_resume_date < $2 THEN 0 ELSE daily_resume_count END)
      < COALESCE(NULLIF(daily_resume_limit, 0), $5)
RETURNING ` + users.Columns

func (s *pgStore) Increment(ctx context.Context, userID string, today time.Time, limits Limits) (users.User, error) {
	row := s.DB.QueryRowContext(ctx, incrementQuery, userID, dateParam(today), limits.Free, limits.Pro, limits.DailyDefault)
	u, err := users.ScanRow(row)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrLimitReached
		}
		return users.User{}, err
	}
	return u, nil
}

func (s *pgStore) GrantPlan(ctx context.Context, userID string, plan users.Plan) (users.User, error) {
	row := s.DB.QueryRowContext(ctx, `
UPDATE users SET plan = $2, has_full_access = TRUE, credits_used = 0, daily_resume_count = 0, updated_at = now()
WHERE id = $1
RETURNING `+users.Columns, userID, string(plan))
	return users.ScanRow(row)
}

func (s *pgStore) BackfillAccess(ctx context.Context) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
UPDATE users SET plan = 'NONE', has_full_access = FALSE, updated_at = now() WHERE plan IS NULL`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
