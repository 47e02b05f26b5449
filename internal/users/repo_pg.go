package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Columns is the select list understood by ScanRow.
const Columns = `id, email, name, phone, profile_image, password_hash, status, plan, has_full_access,
  credits_used, daily_resume_count, daily_resume_limit, last_resume_date, last_login_at, created_at, updated_at`

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sql.DB
}

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanRow reads one row selected with Columns.
func ScanRow(row RowScanner) (User, error) {
	var user User
	var status string
	var plan sql.NullString
	var dailyLimit sql.NullInt64
	var lastResume sql.NullTime
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.ProfileImage,
		&user.PasswordHash,
		&status,
		&plan,
		&user.HasFullAccess,
		&user.CreditsUsed,
		&user.DailyResumeCount,
		&dailyLimit,
		&lastResume,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Status = Status(status)
	user.Plan = PlanNone
	if plan.Valid && plan.String != "" {
		user.Plan = Plan(plan.String)
	}
	if dailyLimit.Valid {
		user.DailyResumeLimit = int(dailyLimit.Int64)
	}
	if lastResume.Valid {
		d := time.Date(lastResume.Time.Year(), lastResume.Time.Month(), lastResume.Time.Day(), 0, 0, 0, 0, time.UTC)
		user.LastResumeDate = &d
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		user.LastLoginAt = &t
	}
	return user, nil
}

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, email, name, phone, profile_image, password_hash, status, plan, has_full_access,
  credits_used, daily_resume_count, daily_resume_limit, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, now(), now())
RETURNING ` + Columns
	row := r.DB.QueryRowContext(ctx, query,
		user.ID,
		normalizeEmail(user.Email),
		user.Name,
		user.Phone,
		user.ProfileImage,
		user.PasswordHash,
		string(user.Status),
		nullablePlan(user.Plan),
		user.HasFullAccess,
		nullableInt(user.DailyResumeLimit),
	)
	created, err := ScanRow(row)
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query := `SELECT ` + Columns + ` FROM users WHERE id = $1 LIMIT 1`
	return ScanRow(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + Columns + ` FROM users WHERE email = $1 LIMIT 1`
	return ScanRow(r.DB.QueryRowContext(ctx, query, normalizeEmail(email)))
}

func (r *PGRepo) UpdateProfile(ctx context.Context, userID, name, email, phone string) (User, error) {
	query := `
UPDATE users SET name = $2, email = $3, phone = $4, updated_at = now()
WHERE id = $1
RETURNING ` + Columns
	user, err := ScanRow(r.DB.QueryRowContext(ctx, query, userID, name, normalizeEmail(email), phone))
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return user, nil
}

func (r *PGRepo) UpdatePhoto(ctx context.Context, userID, image string) error {
	return r.execOne(ctx, `UPDATE users SET profile_image = $2, updated_at = now() WHERE id = $1`, userID, image)
}

func (r *PGRepo) SetStatus(ctx context.Context, userID string, status Status) error {
	return r.execOne(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`, userID, string(status))
}

func (r *PGRepo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at.UTC())
}

func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, userID)
}

func (r *PGRepo) List(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 10000
	}
	query := `SELECT ` + Columns + ` FROM users ORDER BY created_at DESC LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		user, err := ScanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func nullablePlan(p Plan) any {
	if p == "" {
		return nil
	}
	return string(p)
}

func nullableInt(v int) any {
	if v <= 0 {
		return nil
	}
	return v
}
