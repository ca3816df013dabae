package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindDeposit  = "deposit"
	KindWithdraw = "withdraw"
	KindTransfer = "transfer"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	WalletPersonal = "personal"
	WalletJoint    = "joint"
	WalletSavings  = "savings"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Wallet struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"user_id"`
	Name             string          `db:"name" json:"name"`
	Currency         string          `db:"currency" json:"currency"`
	Balance          decimal.Decimal `db:"balance" json:"balance"`
	Kind             string          `db:"kind" json:"kind"`
	OverdraftEnabled bool            `db:"overdraft_enabled" json:"overdraft_enabled"`
	OverdraftLimit   decimal.Decimal `db:"overdraft_limit" json:"overdraft_limit"`
	InterestRate     decimal.Decimal `db:"interest_rate" json:"interest_rate"`
	NegativeMonths   int             `db:"negative_months" json:"negative_months"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID                string          `db:"id" json:"id"`
	WalletID          string          `db:"wallet_id" json:"wallet_id"`
	RecipientWalletID *string         `db:"recipient_wallet_id" json:"recipient_wallet_id,omitempty"`
	CardID            *string         `db:"card_id" json:"card_id,omitempty"`
	CategoryID        *string         `db:"category_id" json:"category_id,omitempty"`
	Kind              string          `db:"kind" json:"kind"`
	Status            string          `db:"status" json:"status"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	OriginalAmount    decimal.Decimal `db:"original_amount" json:"original_amount"`
	OriginalCurrency  string          `db:"original_currency" json:"original_currency"`
	SentCurrency      string          `db:"sent_currency" json:"sent_currency"`
	Description       string          `db:"description" json:"description"`
	IsRecurring       bool            `db:"is_recurring" json:"is_recurring"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	Interval          time.Duration   `db:"recurrence_interval" json:"recurrence_interval,omitempty"`
	LastExecutedAt    *time.Time      `db:"last_executed_at" json:"last_executed_at,omitempty"`
	NextExecutionAt   *time.Time      `db:"next_execution_at" json:"next_execution_at,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

type Card struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	LastFour  string    `db:"last_four" json:"last_four"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Category struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
