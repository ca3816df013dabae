package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
	"wallet/internal/store"
)

func recurringTemplate(id, walletID string, amount string) models.Transaction {
	next := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	return models.Transaction{
		ID:              id,
		WalletID:        walletID,
		Kind:            models.KindWithdraw,
		Status:          models.StatusCompleted,
		OriginalAmount:  decimal.RequireFromString(amount),
		IsRecurring:     true,
		IsActive:        true,
		Interval:        30 * 24 * time.Hour,
		NextExecutionAt: &next,
	}
}

func TestProcessRecurringSpawnsOccurrence(t *testing.T) {
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	template := recurringTemplate("t1", "w1", "25.00")

	var occurrence models.Transaction
	var advancedLast, advancedNext time.Time
	balances := map[string]decimal.Decimal{}
	service, hub := newTestService(serviceOverrides{
		wallets: stubWalletStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, walletID string) (models.Wallet, error) {
				return models.Wallet{ID: walletID, UserID: "u1", Balance: decimal.RequireFromString("100.00"), Currency: "USD"}, nil
			},
			updateBalanceFn: func(_ context.Context, _ store.Execer, walletID string, balance decimal.Decimal) error {
				balances[walletID] = balance
				return nil
			},
		},
		transactions: stubTransactionStore{
			listRecurringDueFn: func(_ context.Context, _ time.Time) ([]models.Transaction, error) {
				return []models.Transaction{template}, nil
			},
			createFn: func(_ context.Context, _ store.Execer, record models.Transaction) error {
				occurrence = record
				return nil
			},
			advanceRecurrenceFn: func(_ context.Context, _ store.Execer, transactionID string, lastExecuted, nextExecution time.Time) error {
				if transactionID != "t1" {
					t.Fatalf("advanced wrong template: %s", transactionID)
				}
				advancedLast, advancedNext = lastExecuted, nextExecution
				return nil
			},
			deactivateRecurrenceFn: func(_ context.Context, _ store.Execer, transactionID string) error {
				t.Fatalf("template %s must stay active", transactionID)
				return nil
			},
		},
	})
	service.now = func() time.Time { return now }

	if err := service.ProcessRecurringTransactions(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balances["w1"]; !got.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("expected balance 75.00, got %s", got)
	}
	if occurrence.ID == "" || occurrence.ID == template.ID {
		t.Fatalf("occurrence needs its own id, got %q", occurrence.ID)
	}
	if occurrence.IsRecurring {
		t.Fatal("spawned occurrence must not itself recur")
	}
	if occurrence.Status != models.StatusCompleted {
		t.Fatalf("expected completed occurrence, got %q", occurrence.Status)
	}
	if !advancedLast.Equal(now) || !advancedNext.Equal(now.Add(template.Interval)) {
		t.Fatalf("recurrence not advanced by one interval: last=%v next=%v", advancedLast, advancedNext)
	}
	if len(hub.calls) != 1 {
		t.Fatalf("expected one balance broadcast, got %d", len(hub.calls))
	}
}

func TestProcessRecurringDeactivatesOnInsufficientFunds(t *testing.T) {
	template := recurringTemplate("t1", "w1", "150.00")

	deactivated := false
	created := false
	service, _ := newTestService(serviceOverrides{
		wallets: stubWalletStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, walletID string) (models.Wallet, error) {
				return models.Wallet{ID: walletID, UserID: "u1", Balance: decimal.RequireFromString("100.00"), Currency: "USD"}, nil
			},
			updateBalanceFn: func(_ context.Context, _ store.Execer, walletID string, _ decimal.Decimal) error {
				t.Fatalf("balance of %s must not move", walletID)
				return nil
			},
		},
		transactions: stubTransactionStore{
			listRecurringDueFn: func(_ context.Context, _ time.Time) ([]models.Transaction, error) {
				return []models.Transaction{template}, nil
			},
			createFn: func(_ context.Context, _ store.Execer, _ models.Transaction) error {
				created = true
				return nil
			},
			deactivateRecurrenceFn: func(_ context.Context, _ store.Execer, transactionID string) error {
				if transactionID != "t1" {
					t.Fatalf("deactivated wrong template: %s", transactionID)
				}
				deactivated = true
				return nil
			},
		},
	})

	if err := service.ProcessRecurringTransactions(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deactivated {
		t.Fatal("underfunded template must be deactivated")
	}
	if created {
		t.Fatal("no occurrence may be recorded for a skipped execution")
	}
}

func TestProcessRecurringIsolatesFailures(t *testing.T) {
	first := recurringTemplate("t1", "missing", "10.00")
	second := recurringTemplate("t2", "w2", "10.00")

	var executed []string
	service, _ := newTestService(serviceOverrides{
		wallets: stubWalletStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, walletID string) (models.Wallet, error) {
				if walletID == "missing" {
					return models.Wallet{}, errors.New("wallet lookup failed")
				}
				return models.Wallet{ID: walletID, UserID: "u2", Balance: decimal.RequireFromString("100.00"), Currency: "USD"}, nil
			},
		},
		transactions: stubTransactionStore{
			listRecurringDueFn: func(_ context.Context, _ time.Time) ([]models.Transaction, error) {
				return []models.Transaction{first, second}, nil
			},
			createFn: func(_ context.Context, _ store.Execer, record models.Transaction) error {
				executed = append(executed, record.WalletID)
				return nil
			},
		},
	})

	if err := service.ProcessRecurringTransactions(context.Background()); err != nil {
		t.Fatalf("batch must not fail on a single bad item, got %v", err)
	}
	if len(executed) != 1 || executed[0] != "w2" {
		t.Fatalf("expected only w2 to execute, got %v", executed)
	}
}

func TestProcessRecurringTransferConverts(t *testing.T) {
	template := recurringTemplate("t1", "w1", "50.00")
	template.Kind = models.KindTransfer
	template.RecipientWalletID = stringPtr("w2")

	balances := map[string]decimal.Decimal{}
	var occurrence models.Transaction
	service, _ := newTestService(serviceOverrides{
		wallets: stubWalletStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, walletID string) (models.Wallet, error) {
				if walletID == "w1" {
					return models.Wallet{ID: walletID, UserID: "u1", Balance: decimal.RequireFromString("100.00"), Currency: "USD"}, nil
				}
				return models.Wallet{ID: walletID, UserID: "u2", Balance: decimal.RequireFromString("0.00"), Currency: "EUR"}, nil
			},
			updateBalanceFn: func(_ context.Context, _ store.Execer, walletID string, balance decimal.Decimal) error {
				balances[walletID] = balance
				return nil
			},
		},
		transactions: stubTransactionStore{
			listRecurringDueFn: func(_ context.Context, _ time.Time) ([]models.Transaction, error) {
				return []models.Transaction{template}, nil
			},
			createFn: func(_ context.Context, _ store.Execer, record models.Transaction) error {
				occurrence = record
				return nil
			},
		},
		converter: stubConverter{
			convertFn: func(_ context.Context, amount decimal.Decimal, _, _ string) (decimal.Decimal, error) {
				return amount.Mul(decimal.RequireFromString("0.9")).RoundBank(2), nil
			},
		},
	})

	if err := service.ProcessRecurringTransactions(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := balances["w1"]; !got.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("source debit wrong: %s", got)
	}
	if got := balances["w2"]; !got.Equal(decimal.RequireFromString("45.00")) {
		t.Fatalf("recipient credit wrong: %s", got)
	}
	if occurrence.OriginalCurrency != "USD" || occurrence.SentCurrency != "EUR" {
		t.Fatalf("occurrence currencies wrong: %+v", occurrence)
	}
}

func TestProcessRecurringTransferLocksWalletsInOrder(t *testing.T) {
	template := recurringTemplate("t1", "b-source", "10.00")
	template.Kind = models.KindTransfer
	template.RecipientWalletID = stringPtr("a-recipient")

	var locked []string
	service, _ := newTestService(serviceOverrides{
		wallets: stubWalletStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, walletID string) (models.Wallet, error) {
				locked = append(locked, walletID)
				currency := "USD"
				if walletID == "a-recipient" {
					currency = "EUR"
				}
				return models.Wallet{ID: walletID, UserID: "u1", Balance: decimal.RequireFromString("100.00"), Currency: currency}, nil
			},
		},
		transactions: stubTransactionStore{
			listRecurringDueFn: func(_ context.Context, _ time.Time) ([]models.Transaction, error) {
				return []models.Transaction{template}, nil
			},
		},
	})

	if err := service.ProcessRecurringTransactions(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locked) != 2 || locked[0] != "a-recipient" || locked[1] != "b-source" {
		t.Fatalf("rows must lock in id order regardless of transfer direction, got %v", locked)
	}
}
