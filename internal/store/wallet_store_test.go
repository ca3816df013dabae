package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
)

func TestWalletStoreGetForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "w1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.Wallet) = models.Wallet{ID: "w1"}
			return nil
		},
	}
	store := NewWalletStore(stubDB{})
	row, err := store.GetForUpdate(ctx, getter, "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ID != "w1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestWalletStoreUpdateBalance(t *testing.T) {
	ctx := context.Background()
	balance := decimal.RequireFromString("12.34")
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET balance = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[1] != "w1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			got, ok := args[0].(decimal.Decimal)
			if !ok || !got.Equal(balance) {
				t.Fatalf("unexpected balance arg: %#v", args[0])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewWalletStore(stubDB{})
	if err := store.UpdateBalance(ctx, execer, "w1", balance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWalletStoreGetUserWalletIDs(t *testing.T) {
	ctx := context.Background()
	store := NewWalletStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "UNION") || !strings.Contains(query, "wallet_members") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]string) = []string{"w1", "w2"}
			return nil
		},
	})
	ids, err := store.GetUserWalletIDs(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("unexpected ids: %#v", ids)
	}
}
