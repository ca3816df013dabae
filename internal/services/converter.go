package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"wallet/internal/money"
	"wallet/internal/store"
)

// Converter converts an amount between two currency codes at the current
// rate.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

type RateReader interface {
	GetActive(ctx context.Context, baseCurrency, quoteCurrency string) (store.ExchangeRate, error)
}

// RateConverter resolves rates from the exchange-rate store, falling back
// to the reciprocal of the inverse pair when only that is configured.
type RateConverter struct {
	rates RateReader
}

func NewRateConverter(rates RateReader) *RateConverter {
	return &RateConverter{rates: rates}
}

func (c *RateConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := c.resolveRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Convert(amount, rate), nil
}

func (c *RateConverter) resolveRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	row, err := c.rates.GetActive(ctx, from, to)
	if err == nil {
		return money.ParseRate(row.Rate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, err
	}
	inverse, err := c.rates.GetActive(ctx, to, from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrRateNotSet
		}
		return decimal.Zero, err
	}
	parsed, err := money.ParseRate(inverse.Rate)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(1).Div(parsed).RoundBank(6), nil
}
