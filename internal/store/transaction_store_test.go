package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
)

func TestTransactionStoreCreate(t *testing.T) {
	ctx := context.Background()
	next := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO transactions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 17 {
				t.Fatalf("expected 17 args, got %d", len(args))
			}
			if args[0] != "t1" || args[1] != "w1" || args[5] != models.KindWithdraw {
				t.Fatalf("unexpected args: %#v", args)
			}
			// Durations travel as integer nanoseconds.
			if args[14] != int64(24*time.Hour) {
				t.Fatalf("unexpected interval arg: %#v", args[14])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	err := store.Create(ctx, execer, models.Transaction{
		ID:              "t1",
		WalletID:        "w1",
		Kind:            models.KindWithdraw,
		Status:          models.StatusCompleted,
		Amount:          decimal.RequireFromString("10.00"),
		OriginalAmount:  decimal.RequireFromString("10.00"),
		IsRecurring:     true,
		IsActive:        true,
		Interval:        24 * time.Hour,
		NextExecutionAt: &next,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreListByWallets(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "wallet_id = ANY($1) OR recipient_wallet_id = ANY($1)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]models.Transaction) = []models.Transaction{{ID: "t1"}}
			return nil
		},
	})
	rows, err := store.ListByWallets(ctx, []string{"w1", "w2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "t1" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestTransactionStoreListRecurringDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "is_recurring = TRUE AND is_active = TRUE AND next_execution_at <= $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != now {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]models.Transaction) = []models.Transaction{{ID: "t1", IsRecurring: true}}
			return nil
		},
	})
	rows, err := store.ListRecurringDue(ctx, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || !rows[0].IsRecurring {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestTransactionStoreAdvanceRecurrence(t *testing.T) {
	ctx := context.Background()
	last := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	next := last.Add(24 * time.Hour)
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET last_executed_at = $1, next_execution_at = $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != last || args[1] != next || args[2] != "t1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	if err := store.AdvanceRecurrence(ctx, execer, "t1", last, next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreDeactivateRecurrence(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET is_active = FALSE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "t1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	if err := store.DeactivateRecurrence(ctx, execer, "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
