package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func resetShared() {
	sharedMu.Lock()
	sharedDB = nil
	sharedMu.Unlock()
}

func TestSharedReturnsSamePointer(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()
	resetShared()
	defer resetShared()

	db1, err := Shared(context.Background(), "ignored", PoolFor(ProfileLambda))
	if err != nil {
		t.Fatalf("Shared first: %v", err)
	}
	db2, err := Shared(context.Background(), "ignored", PoolFor(ProfileLambda))
	if err != nil {
		t.Fatalf("Shared second: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected shared pointers to match")
	}
}

func TestPoolWithEnvAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	pool := PoolFor(ProfileServer).WithEnv()
	db, err := Connect(context.Background(), "ignored", pool)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", got)
	}
	if pool.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", pool.ConnMaxIdleTime)
	}
	if pool.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", pool.PingTimeout)
	}
}

func TestPoolWithEnvSkipsInvalid(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	pool := PoolFor(ProfileCLI).WithEnv()
	if pool.MaxOpenConns != 1 {
		t.Fatalf("expected CLI default of 1, got %d", pool.MaxOpenConns)
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), " ", PoolFor(ProfileServer)); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestSharedRetriesAfterFailure(t *testing.T) {
	var calls int32
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, driver.ErrBadConn
		}
		ensureTestDriverRegistered()
		return sql.Open("dbtest", dsn)
	}
	defer func() {
		openDB = prev
	}()
	ensureTestDriverRegistered()
	resetShared()
	defer resetShared()

	if _, err := Shared(context.Background(), "ignored", PoolFor(ProfileLambda)); err == nil {
		t.Fatalf("expected first call to fail")
	}
	db2, err := Shared(context.Background(), "ignored", PoolFor(ProfileLambda))
	if err != nil {
		t.Fatalf("expected second call to succeed: %v", err)
	}
	if db2 == nil {
		t.Fatalf("expected db after retry")
	}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM generated_resumes").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	err = WithTx(context.Background(), database, func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM generated_resumes WHERE user_id=$1", "u1")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx commit path: %v", err)
	}

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = WithTx(context.Background(), database, func(tx *sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
