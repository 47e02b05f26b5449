package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"jobfit-backend/internal/generatedresumes"
	"jobfit-backend/internal/shared/storage/db"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

// Service covers the self-service account operations: profile view, data
// export and account deletion.
type Service struct {
	Users   users.Repo
	Records *generatedresumes.Service
	Gate    *usage.Gate
	Clock   clock.Clock
}

// Profile is the caller's account together with today's quota view.
type Profile struct {
	User  users.User     `json:"user"`
	Usage usage.Snapshot `json:"usage"`
}

// Export is the downloadable copy of everything stored about a user.
type Export struct {
	ExportDate   time.Time                 `json:"exportDate"`
	User         users.User                `json:"user"`
	Resumes      []generatedresumes.Record `json:"resumes"`
	TotalResumes int                       `json:"totalResumes"`
}

// DeleteResult reports what an account deletion removed.
type DeleteResult struct {
	DeletedResumes int `json:"deletedResumes"`
}

func NewService(usersRepo users.Repo, records *generatedresumes.Service, gate *usage.Gate) *Service {
	return &Service{Users: usersRepo, Records: records, Gate: gate, Clock: clock.New()}
}

func (s *Service) Me(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, users.ErrNotFound
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, Usage: s.Gate.Snapshot(u)}, nil
}

func (s *Service) Export(ctx context.Context, userID string) (Export, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return Export{}, err
	}
	records, err := s.Records.History(ctx, userID)
	if err != nil {
		return Export{}, err
	}
	if records == nil {
		records = []generatedresumes.Record{}
	}
	return Export{
		ExportDate:   s.now(),
		User:         u,
		Resumes:      records,
		TotalResumes: len(records),
	}, nil
}

// DeleteAccount removes the user's generation records and then the user.
// On Postgres both deletes share one transaction; stored documents are removed
// after commit on a best-effort basis.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, errors.New("userID is required")
	}

	if userPG, ok := s.Users.(*users.PGRepo); ok && userPG != nil && userPG.DB != nil {
		if _, ok := s.Records.Repo.(*generatedresumes.PGRepo); ok {
			keys, err := deleteWithTx(ctx, userPG.DB, userID)
			if err != nil {
				return DeleteResult{}, err
			}
			s.Records.RemoveObjects(ctx, keys)
			s.logDeleted(userID, len(keys))
			return DeleteResult{DeletedResumes: len(keys)}, nil
		}
	}

	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		return DeleteResult{}, err
	}
	count, err := s.Records.DeleteForUser(ctx, userID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.Users.Delete(ctx, userID); err != nil {
		return DeleteResult{}, err
	}
	s.logDeleted(userID, count)
	return DeleteResult{DeletedResumes: count}, nil
}

func deleteWithTx(ctx context.Context, database *sql.DB, userID string) ([]string, error) {
	var keys []string
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		if keys, err = generatedresumes.DeleteByUserTx(ctx, tx, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return users.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Service) logDeleted(userID string, resumes int) {
	telemetry.Info("account.deleted", map[string]any{
		"user_id": userID,
		"resumes": resumes,
	})
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
