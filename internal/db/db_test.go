package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type txState struct {
	commits   int64
	rollbacks int64
}

type trackingDriver struct {
	state *txState
}

func (d *trackingDriver) Open(name string) (driver.Conn, error) {
	return &trackingConn{state: d.state}, nil
}

type trackingConn struct {
	state *txState
}

func (c *trackingConn) Prepare(query string) (driver.Stmt, error) {
	return &trackingStmt{}, nil
}

func (c *trackingConn) Close() error {
	return nil
}

func (c *trackingConn) Begin() (driver.Tx, error) {
	return &trackingTx{state: c.state}, nil
}

func (c *trackingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return &trackingTx{state: c.state}, nil
}

type trackingTx struct {
	state *txState
}

func (t *trackingTx) Commit() error {
	atomic.AddInt64(&t.state.commits, 1)
	return nil
}

func (t *trackingTx) Rollback() error {
	atomic.AddInt64(&t.state.rollbacks, 1)
	return nil
}

type trackingStmt struct{}

func (s *trackingStmt) Close() error {
	return nil
}

func (s *trackingStmt) NumInput() int {
	return -1
}

func (s *trackingStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, nil
}

func (s *trackingStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, nil
}

var driverCounter uint64

func registerTrackingDriver(state *txState) string {
	name := fmt.Sprintf("tracking-%d", atomic.AddUint64(&driverCounter, 1))
	sql.Register(name, &trackingDriver{state: state})
	return name
}

func openTrackingDB(t *testing.T, state *txState) *sqlx.DB {
	t.Helper()
	driverName := registerTrackingDriver(state)
	sqlDB, err := sql.Open(driverName, "")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlx.NewDb(sqlDB, driverName)
}

func TestWithTxCommits(t *testing.T) {
	state := &txState{}
	xdb := openTrackingDB(t, state)
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.commits != 1 || state.rollbacks != 0 {
		t.Fatalf("expected commit=1 rollback=0, got %d/%d", state.commits, state.rollbacks)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	state := &txState{}
	xdb := openTrackingDB(t, state)
	boom := errors.New("boom")
	if err := WithTx(context.Background(), xdb, func(*sqlx.Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if state.commits != 0 || state.rollbacks != 1 {
		t.Fatalf("expected commit=0 rollback=1, got %d/%d", state.commits, state.rollbacks)
	}
}

func TestIsConflict(t *testing.T) {
	if !IsConflict(&pq.Error{Code: "40001"}) {
		t.Fatal("serialization failure should be a conflict")
	}
	if !IsConflict(&pq.Error{Code: "40P01"}) {
		t.Fatal("deadlock should be a conflict")
	}
	if !IsConflict(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40001"})) {
		t.Fatal("wrapped conflicts should still match")
	}
	if IsConflict(&pq.Error{Code: "23505"}) {
		t.Fatal("unique violation is not a conflict")
	}
	if IsConflict(errors.New("boom")) {
		t.Fatal("plain errors are not conflicts")
	}
}
