package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PolicyStore struct {
	db DB
}

// OverdraftPolicy is the global default applied to newly created wallets.
type OverdraftPolicy struct {
	OverdraftEnabled bool            `db:"overdraft_enabled"`
	OverdraftLimit   decimal.Decimal `db:"overdraft_limit"`
	UpdatedBy        *string         `db:"updated_by"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func NewPolicyStore(db DB) *PolicyStore {
	return &PolicyStore{db: db}
}

func (s *PolicyStore) GetOverdraftPolicy(ctx context.Context) (OverdraftPolicy, error) {
	var row OverdraftPolicy
	err := s.db.GetContext(ctx, &row, `
		SELECT overdraft_enabled, overdraft_limit, updated_by, updated_at
		FROM wallet_policies
		LIMIT 1
	`)
	if err != nil {
		return OverdraftPolicy{}, err
	}
	return row, nil
}

func (s *PolicyStore) SetOverdraftPolicy(ctx context.Context, tx Execer, enabled bool, limit decimal.Decimal, actorID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_policies
		SET overdraft_enabled = $1, overdraft_limit = $2, updated_by = $3, updated_at = NOW()
	`, enabled, limit, actorID)
	return err
}

func (s *PolicyStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.db.GetContext(ctx, &isAdmin, `
		SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1)
	`, userID)
	return isAdmin, err
}
