package store

import (
	"context"
	"time"

	"github.com/lib/pq"

	"wallet/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, wallet_id, recipient_wallet_id, card_id, category_id, kind, status,
			amount, original_amount, original_currency, sent_currency, description,
			is_recurring, is_active, recurrence_interval, last_executed_at, next_execution_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, t.ID, t.WalletID, t.RecipientWalletID, t.CardID, t.CategoryID, t.Kind, t.Status,
		t.Amount, t.OriginalAmount, t.OriginalCurrency, t.SentCurrency, t.Description,
		t.IsRecurring, t.IsActive, int64(t.Interval), t.LastExecutedAt, t.NextExecutionAt)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, wallet_id, recipient_wallet_id, card_id, category_id, kind, status,
		       amount, original_amount, original_currency, sent_currency, description,
		       is_recurring, is_active, recurrence_interval, last_executed_at, next_execution_at, created_at
		FROM transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

// ListByWallets loads every transaction where one of the given wallets is
// the source or the recipient, oldest first.
func (s *TransactionStore) ListByWallets(ctx context.Context, walletIDs []string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, wallet_id, recipient_wallet_id, card_id, category_id, kind, status,
		       amount, original_amount, original_currency, sent_currency, description,
		       is_recurring, is_active, recurrence_interval, last_executed_at, next_execution_at, created_at
		FROM transactions
		WHERE wallet_id = ANY($1) OR recipient_wallet_id = ANY($1)
		ORDER BY created_at
	`, pq.Array(walletIDs))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRecurringDue returns active recurring templates whose next execution
// is at or before now.
func (s *TransactionStore) ListRecurringDue(ctx context.Context, now time.Time) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, wallet_id, recipient_wallet_id, card_id, category_id, kind, status,
		       amount, original_amount, original_currency, sent_currency, description,
		       is_recurring, is_active, recurrence_interval, last_executed_at, next_execution_at, created_at
		FROM transactions
		WHERE is_recurring = TRUE AND is_active = TRUE AND next_execution_at <= $1
		ORDER BY next_execution_at
	`, now)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) AdvanceRecurrence(ctx context.Context, tx Execer, transactionID string, lastExecuted, nextExecution time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET last_executed_at = $1, next_execution_at = $2
		WHERE id = $3
	`, lastExecuted, nextExecution, transactionID)
	return err
}

func (s *TransactionStore) DeactivateRecurrence(ctx context.Context, tx Execer, transactionID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET is_active = FALSE
		WHERE id = $1
	`, transactionID)
	return err
}

func (s *TransactionStore) SetCategory(ctx context.Context, tx Execer, transactionID, categoryID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = $1
		WHERE id = $2
	`, categoryID, transactionID)
	return err
}
