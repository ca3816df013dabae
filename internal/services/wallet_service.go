package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"wallet/internal/models"
	"wallet/internal/validator"
)

type CreateWalletRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Kind     string `json:"kind"`
}

// CreateWallet opens an empty wallet for the user. Overdraft settings are
// inherited from the current global policy at creation time; later policy
// changes do not retroactively alter existing wallets.
func (s *TransactionService) CreateWallet(ctx context.Context, userID string, req CreateWalletRequest) (models.Wallet, error) {
	if req.Name == "" {
		return models.Wallet{}, ErrInvalidRequest
	}
	if err := validator.ValidateCurrency(req.Currency); err != nil {
		return models.Wallet{}, ErrInvalidRequest
	}
	kind := req.Kind
	switch kind {
	case "":
		kind = models.WalletPersonal
	case models.WalletPersonal, models.WalletJoint, models.WalletSavings:
	default:
		return models.Wallet{}, ErrInvalidRequest
	}

	policy, err := s.policies.GetOverdraftPolicy(ctx)
	if err != nil {
		return models.Wallet{}, err
	}
	wallet := models.Wallet{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             req.Name,
		Currency:         req.Currency,
		Balance:          decimal.Zero,
		Kind:             kind,
		OverdraftEnabled: policy.OverdraftEnabled,
		OverdraftLimit:   policy.OverdraftLimit,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.wallets.Create(ctx, tx, wallet); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"name": wallet.Name, "currency": wallet.Currency})
		return s.audit.Log(ctx, tx, userID, "wallet_created", "wallet", wallet.ID, string(data))
	})
	if err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}

// WalletLedger returns a page of the wallet's ledger entries, newest first.
func (s *TransactionService) WalletLedger(ctx context.Context, walletID, userID string, limit, offset int) ([]map[string]any, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	members, err := s.wallets.GetMembers(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	if err := ValidateWalletOwnership(wallet, members, userID); err != nil {
		return nil, err
	}
	return s.ledger.ListByWallet(ctx, walletID, limit, offset)
}
