package generatedresumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const recordColumns = `id, user_id, user_email, job_title, company_name, match_score, original_name, file_name,
  status, storage_key, size_bytes, mime_type, warnings, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var status string
	var warnings []byte
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.UserEmail,
		&rec.JobTitle,
		&rec.CompanyName,
		&rec.MatchScore,
		&rec.OriginalName,
		&rec.FileName,
		&status,
		&rec.StorageKey,
		&rec.SizeBytes,
		&rec.MimeType,
		&warnings,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Status = Status(status)
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &rec.Warnings); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

// Create inserts a generation record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	rawWarnings, err := json.Marshal(warnings)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO generated_resumes (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.UserEmail,
		rec.JobTitle,
		rec.CompanyName,
		rec.MatchScore,
		rec.OriginalName,
		rec.FileName,
		string(rec.Status),
		rec.StorageKey,
		rec.SizeBytes,
		rec.MimeType,
		rawWarnings,
		rec.CreatedAt,
	)
	return err
}

// GetByID returns a record regardless of owner; callers check ownership.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM generated_resumes WHERE id = $1 LIMIT 1`
	return scanRecord(r.DB.QueryRowContext(ctx, query, id))
}

// ListByUser lists a user's records newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM generated_resumes
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	return r.query(ctx, query, userID, clampLimit(limit, 100))
}

// ListRecent lists records across users newest first.
func (r *PGRepo) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	const query = `SELECT ` + recordColumns + ` FROM generated_resumes ORDER BY created_at DESC LIMIT $1`
	return r.query(ctx, query, clampLimit(limit, 1000))
}

func (r *PGRepo) CountBetween(ctx context.Context, from, to time.Time, userID string) (int, error) {
	var n int
	var err error
	if userID == "" {
		err = r.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM generated_resumes
WHERE status = 'SUCCESS' AND created_at >= $1 AND created_at < $2`, from, to).Scan(&n)
	} else {
		err = r.DB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM generated_resumes
WHERE status = 'SUCCESS' AND created_at >= $1 AND created_at < $2 AND user_id = $3`, from, to, userID).Scan(&n)
	}
	return n, err
}

func (r *PGRepo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_resumes`).Scan(&n)
	return n, err
}

func (r *PGRepo) AverageMatchScore(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	if err := r.DB.QueryRowContext(ctx, `SELECT AVG(match_score)::float8 FROM generated_resumes`).Scan(&avg); err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	return DeleteByUserTx(ctx, r.DB, userID)
}

func (r *PGRepo) PruneBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return collectKeys(r.DB.QueryContext(ctx, `DELETE FROM generated_resumes WHERE created_at < $1 RETURNING storage_key`, cutoff))
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DeleteByUserTx deletes a user's records through q so it can join a transaction.
func DeleteByUserTx(ctx context.Context, q Querier, userID string) ([]string, error) {
	return collectKeys(q.QueryContext(ctx, `DELETE FROM generated_resumes WHERE user_id = $1 RETURNING storage_key`, userID))
}

func collectKeys(rows *sql.Rows, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

var _ Repo = (*PGRepo)(nil)
