package store

import (
	"context"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, w models.Wallet) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, name, currency, balance, kind, overdraft_enabled, overdraft_limit, interest_rate, negative_months)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, w.ID, w.UserID, w.Name, w.Currency, w.Balance, w.Kind, w.OverdraftEnabled, w.OverdraftLimit, w.InterestRate, w.NegativeMonths)
	return err
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, currency, balance, kind, overdraft_enabled, overdraft_limit, interest_rate, negative_months, created_at
		FROM wallets
		WHERE id = $1
	`, walletID)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, name, currency, balance, kind, overdraft_enabled, overdraft_limit, interest_rate, negative_months, created_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if err != nil {
		return models.Wallet{}, err
	}
	return row, nil
}

// GetUserWalletIDs returns every wallet the user owns or is a member of.
func (s *WalletStore) GetUserWalletIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM wallets WHERE user_id = $1
		UNION
		SELECT wallet_id FROM wallet_members WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *WalletStore) GetByUser(ctx context.Context, userID string) ([]models.Wallet, error) {
	var rows []models.Wallet
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, currency, balance, kind, overdraft_enabled, overdraft_limit, interest_rate, negative_months, created_at
		FROM wallets
		WHERE user_id = $1
		   OR id IN (SELECT wallet_id FROM wallet_members WHERE user_id = $1)
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetMembers returns the secondary member user ids of a joint wallet.
func (s *WalletStore) GetMembers(ctx context.Context, walletID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT user_id FROM wallet_members WHERE wallet_id = $1
	`, walletID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *WalletStore) UpdateBalance(ctx context.Context, tx Execer, walletID string, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, walletID)
	return err
}
