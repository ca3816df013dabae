package store

import (
	"context"
	"time"
)

type RateStore struct {
	db DB
}

type ExchangeRate struct {
	ID            string     `db:"id"`
	BaseCurrency  string     `db:"base_currency"`
	QuoteCurrency string     `db:"quote_currency"`
	Rate          string     `db:"rate"`
	IsActive      bool       `db:"is_active"`
	CreatedAt     time.Time  `db:"created_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
}

func NewRateStore(db DB) *RateStore {
	return &RateStore{db: db}
}

func (s *RateStore) GetActive(ctx context.Context, baseCurrency, quoteCurrency string) (ExchangeRate, error) {
	var row ExchangeRate
	err := s.db.GetContext(ctx, &row, `
		SELECT id, base_currency, quote_currency, rate, is_active, created_at, deleted_at
		FROM exchange_rates
		WHERE base_currency = $1 AND quote_currency = $2 AND is_active = TRUE
	`, baseCurrency, quoteCurrency)
	if err != nil {
		return ExchangeRate{}, err
	}
	return row, nil
}

// SetRate activates a new rate for the pair and retires the previous one.
func (s *RateStore) SetRate(ctx context.Context, tx Tx, baseCurrency, quoteCurrency, rate, actorID string) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, `
		INSERT INTO exchange_rates (id, base_currency, quote_currency, rate, is_active, created_by)
		VALUES (gen_random_uuid()::text, $1, $2, $3, TRUE, $4)
		RETURNING id
	`, baseCurrency, quoteCurrency, rate, actorID)
	if err != nil {
		return "", err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE exchange_rates
		SET is_active = FALSE, deleted_at = NOW()
		WHERE base_currency = $1 AND quote_currency = $2 AND id <> $3 AND is_active = TRUE
	`, baseCurrency, quoteCurrency, id)
	if err != nil {
		return "", err
	}
	return id, nil
}
