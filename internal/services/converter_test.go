package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"wallet/internal/store"
)

type stubRateReader struct {
	getActiveFn func(ctx context.Context, baseCurrency, quoteCurrency string) (store.ExchangeRate, error)
}

func (s stubRateReader) GetActive(ctx context.Context, baseCurrency, quoteCurrency string) (store.ExchangeRate, error) {
	return s.getActiveFn(ctx, baseCurrency, quoteCurrency)
}

func TestRateConverterSameCurrency(t *testing.T) {
	converter := NewRateConverter(stubRateReader{
		getActiveFn: func(_ context.Context, _, _ string) (store.ExchangeRate, error) {
			t.Fatal("same-currency conversion must not hit the store")
			return store.ExchangeRate{}, nil
		},
	})
	amount := decimal.RequireFromString("123.45")
	got, err := converter.Convert(context.Background(), amount, "USD", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(amount) {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestRateConverterDirectRate(t *testing.T) {
	converter := NewRateConverter(stubRateReader{
		getActiveFn: func(_ context.Context, baseCurrency, quoteCurrency string) (store.ExchangeRate, error) {
			if baseCurrency == "USD" && quoteCurrency == "EUR" {
				return store.ExchangeRate{BaseCurrency: "USD", QuoteCurrency: "EUR", Rate: "0.92"}, nil
			}
			return store.ExchangeRate{}, sql.ErrNoRows
		},
	})
	got, err := converter.Convert(context.Background(), decimal.RequireFromString("100.00"), "USD", "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("92.00")) {
		t.Fatalf("expected 92.00, got %s", got)
	}
}

func TestRateConverterReciprocalFallback(t *testing.T) {
	converter := NewRateConverter(stubRateReader{
		getActiveFn: func(_ context.Context, baseCurrency, quoteCurrency string) (store.ExchangeRate, error) {
			if baseCurrency == "EUR" && quoteCurrency == "USD" {
				return store.ExchangeRate{BaseCurrency: "EUR", QuoteCurrency: "USD", Rate: "1.25"}, nil
			}
			return store.ExchangeRate{}, sql.ErrNoRows
		},
	})
	// Only EUR->USD is configured; USD->EUR goes through 1/1.25.
	got, err := converter.Convert(context.Background(), decimal.RequireFromString("100.00"), "USD", "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("80.00")) {
		t.Fatalf("expected 80.00, got %s", got)
	}
}

func TestRateConverterNoRate(t *testing.T) {
	converter := NewRateConverter(stubRateReader{
		getActiveFn: func(_ context.Context, _, _ string) (store.ExchangeRate, error) {
			return store.ExchangeRate{}, sql.ErrNoRows
		},
	})
	if _, err := converter.Convert(context.Background(), decimal.RequireFromString("10.00"), "USD", "GBP"); !errors.Is(err, ErrRateNotSet) {
		t.Fatalf("expected ErrRateNotSet, got %v", err)
	}
}

func TestRateConverterPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("rate store unavailable")
	converter := NewRateConverter(stubRateReader{
		getActiveFn: func(_ context.Context, _, _ string) (store.ExchangeRate, error) {
			return store.ExchangeRate{}, boom
		},
	})
	if _, err := converter.Convert(context.Background(), decimal.RequireFromString("10.00"), "USD", "EUR"); !errors.Is(err, boom) {
		t.Fatalf("expected the store error, got %v", err)
	}
}
