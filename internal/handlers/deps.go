package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
	"wallet/internal/services"
)

type TransactionService interface {
	CreateTransaction(ctx context.Context, req services.CreateRequest, userID, code string) (services.CreateResult, error)
	VerifyTransaction(ctx context.Context, token, code, userID string) (string, error)
	FilterTransactions(ctx context.Context, page, pageSize int, filter services.Filter, userID string) (services.FilterResult, error)
	CancelRecurringTransaction(ctx context.Context, transactionID, userID string) error
	AddTransactionToCategory(ctx context.Context, transactionID, categoryID, userID string) error
	CreateWallet(ctx context.Context, userID string, req services.CreateWalletRequest) (models.Wallet, error)
	WalletLedger(ctx context.Context, walletID, userID string, limit, offset int) ([]map[string]any, error)
	UpdateOverdraftPolicy(ctx context.Context, adminID string, enabled bool, limit decimal.Decimal) error
	SetExchangeRate(ctx context.Context, adminID, baseCurrency, quoteCurrency string, rate decimal.Decimal) (string, error)
	ListAuditLogs(ctx context.Context, adminID string, limit, offset int) ([]map[string]any, error)
}

type WalletStore interface {
	GetByUser(ctx context.Context, userID string) ([]models.Wallet, error)
}
