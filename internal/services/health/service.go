package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Report is the /health payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
	AI       string `json:"ai"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB          *sql.DB
	StorageKind string
	AIProvider  string
}

// NewService constructs a new health service. db may be nil when running on
// in-memory repositories.
func NewService(db *sql.DB, storageKind, aiProvider string) *Service {
	return &Service{DB: db, StorageKind: storageKind, AIProvider: aiProvider}
}

// Status pings the database, if any, and describes the active backends.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Database: "memory", Storage: s.StorageKind, AI: s.AIProvider}
	if s.DB == nil {
		return r
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		r.OK = false
		r.Database = "unreachable"
		return r
	}
	r.Database = "postgres"
	return r
}
