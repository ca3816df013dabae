package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID            string
	TransactionID string
	WalletID      string
	Amount        decimal.Decimal
	Currency      string
	Description   string
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (id, transaction_id, wallet_id, amount, currency, description)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entry.ID, entry.TransactionID, entry.WalletID, entry.Amount, entry.Currency, entry.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]map[string]any, error) {
	var rows []struct {
		ID            string          `db:"id"`
		TransactionID string          `db:"transaction_id"`
		WalletID      string          `db:"wallet_id"`
		Amount        decimal.Decimal `db:"amount"`
		Currency      string          `db:"currency"`
		Description   string          `db:"description"`
		CreatedAt     time.Time       `db:"created_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, transaction_id, wallet_id, amount, currency, description, created_at
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	entries := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, map[string]any{
			"id":             row.ID,
			"transaction_id": row.TransactionID,
			"wallet_id":      row.WalletID,
			"amount":         row.Amount.StringFixedBank(2),
			"currency":       row.Currency,
			"description":    row.Description,
			"created_at":     row.CreatedAt,
		})
	}
	return entries, nil
}
