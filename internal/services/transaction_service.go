package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"wallet/internal/db"
	"wallet/internal/models"
	"wallet/internal/money"
	"wallet/internal/store"
	"wallet/internal/websocket"
)

type WalletStore interface {
	Create(ctx context.Context, tx store.Execer, w models.Wallet) error
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	UpdateBalance(ctx context.Context, tx store.Execer, walletID string, balance decimal.Decimal) error
	GetMembers(ctx context.Context, walletID string) ([]string, error)
	GetUserWalletIDs(ctx context.Context, userID string) ([]string, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, t models.Transaction) error
	GetByID(ctx context.Context, transactionID string) (models.Transaction, error)
	ListByWallets(ctx context.Context, walletIDs []string) ([]models.Transaction, error)
	ListRecurringDue(ctx context.Context, now time.Time) ([]models.Transaction, error)
	AdvanceRecurrence(ctx context.Context, tx store.Execer, transactionID string, lastExecuted, nextExecution time.Time) error
	DeactivateRecurrence(ctx context.Context, tx store.Execer, transactionID string) error
	SetCategory(ctx context.Context, tx store.Execer, transactionID, categoryID string) error
}

type CardStore interface {
	GetByID(ctx context.Context, cardID string) (models.Card, error)
}

type CategoryStore interface {
	GetByID(ctx context.Context, categoryID string) (models.Category, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]map[string]any, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type PolicyStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	GetOverdraftPolicy(ctx context.Context) (store.OverdraftPolicy, error)
	SetOverdraftPolicy(ctx context.Context, tx store.Execer, enabled bool, limit decimal.Decimal, actorID string) error
}

type RateStore interface {
	SetRate(ctx context.Context, tx store.Tx, baseCurrency, quoteCurrency, rate, actorID string) (string, error)
}

type VerificationEscalator interface {
	Stage(ctx context.Context, req CreateRequest, user models.User) (string, error)
	VerifyCode(ctx context.Context, userID, code string) error
	TakePending(ctx context.Context, token string) (PendingTransaction, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type TransactionService struct {
	txRunner     db.TxRunner
	wallets      WalletStore
	transactions TransactionStore
	cards        CardStore
	categories   CategoryStore
	users        UserStore
	ledger       LedgerStore
	audit        AuditStore
	policies     PolicyStore
	rates        RateStore
	converter    Converter
	escalator    VerificationEscalator
	hub          BalanceHub
	threshold    decimal.Decimal
	now          func() time.Time
}

func NewTransactionService(txRunner db.TxRunner, wallets WalletStore, transactions TransactionStore, cards CardStore, categories CategoryStore, users UserStore, ledger LedgerStore, audit AuditStore, policies PolicyStore, rates RateStore, converter Converter, escalator VerificationEscalator, hub BalanceHub, threshold decimal.Decimal) *TransactionService {
	return &TransactionService{
		txRunner:     txRunner,
		wallets:      wallets,
		transactions: transactions,
		cards:        cards,
		categories:   categories,
		users:        users,
		ledger:       ledger,
		audit:        audit,
		policies:     policies,
		rates:        rates,
		converter:    converter,
		escalator:    escalator,
		hub:          hub,
		threshold:    threshold,
		now:          time.Now,
	}
}

// CreateRequest describes one requested money movement. Amount is
// denominated in the source wallet's currency.
type CreateRequest struct {
	WalletID          string          `json:"wallet_id"`
	RecipientWalletID *string         `json:"recipient_wallet_id,omitempty"`
	CardID            *string         `json:"card_id,omitempty"`
	CategoryID        *string         `json:"category_id,omitempty"`
	Kind              string          `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Recurring         bool            `json:"recurring"`
	Interval          time.Duration   `json:"interval,omitempty"`
	PendingToken      *string         `json:"pending_token,omitempty"`
}

// VerificationRequired carries everything the caller needs to build a
// confirmation view without re-deriving state.
type VerificationRequired struct {
	Token             string          `json:"token"`
	WalletID          string          `json:"wallet_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	RecipientWalletID *string         `json:"recipient_wallet_id,omitempty"`
}

// CreateResult is the tagged outcome of CreateTransaction: either a
// committed transaction id, or a staged verification demand with nothing
// committed.
type CreateResult struct {
	TransactionID string
	Verification  *VerificationRequired
}

// CreateTransaction validates ownership and balance invariants, escalates
// high-value requests into the verification workflow, and otherwise
// settles the movement atomically.
func (s *TransactionService) CreateTransaction(ctx context.Context, req CreateRequest, userID, code string) (CreateResult, error) {
	if err := validateRequest(req); err != nil {
		return CreateResult{}, err
	}

	if req.PendingToken != nil && *req.PendingToken != "" {
		if code == "" {
			return CreateResult{}, ErrVerificationFailed
		}
		txID, err := s.VerifyTransaction(ctx, *req.PendingToken, code, userID)
		if err != nil {
			return CreateResult{}, err
		}
		return CreateResult{TransactionID: txID}, nil
	}

	wallet, err := s.wallets.GetByID(ctx, req.WalletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CreateResult{}, ErrWalletNotFound
		}
		return CreateResult{}, err
	}
	members, err := s.wallets.GetMembers(ctx, wallet.ID)
	if err != nil {
		return CreateResult{}, err
	}
	if err := ValidateWalletOwnership(wallet, members, userID); err != nil {
		return CreateResult{}, err
	}
	if req.Kind != models.KindDeposit {
		if err := ValidateOverdraftAndBalance(wallet, req.Amount); err != nil {
			return CreateResult{}, err
		}
	}

	if IsHighValue(req.Kind, req.Amount, wallet, s.threshold) {
		if code == "" {
			user, err := s.users.GetByID(ctx, userID)
			if err != nil {
				return CreateResult{}, err
			}
			token, err := s.escalator.Stage(ctx, req, user)
			if err != nil {
				return CreateResult{}, err
			}
			return CreateResult{Verification: &VerificationRequired{
				Token:             token,
				WalletID:          req.WalletID,
				Amount:            req.Amount,
				Description:       req.Description,
				RecipientWalletID: req.RecipientWalletID,
			}}, nil
		}
		// A code is only ever issued by staging; an unissued or stale one
		// must not settle anything.
		if err := s.escalator.VerifyCode(ctx, userID, code); err != nil {
			return CreateResult{}, err
		}
	}

	txID, err := s.commit(ctx, req, userID)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{TransactionID: txID}, nil
}

// VerifyTransaction completes a staged transaction: the code proves the
// user, the token proves this exact request. The token is consumed even if
// the subsequent commit fails, so the client restarts from staging.
func (s *TransactionService) VerifyTransaction(ctx context.Context, token, code, userID string) (string, error) {
	if err := s.escalator.VerifyCode(ctx, userID, code); err != nil {
		return "", err
	}
	pending, err := s.escalator.TakePending(ctx, token)
	if err != nil {
		return "", err
	}
	if pending.UserID != userID {
		return "", ErrVerificationFailed
	}
	return s.commit(ctx, pending.Request, userID)
}

type balanceEvent struct {
	userID string
	update websocket.BalanceUpdate
}

func (s *TransactionService) commit(ctx context.Context, req CreateRequest, userID string) (string, error) {
	if req.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *req.CategoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", ErrCategoryNotFound
			}
			return "", err
		}
		if category.UserID != userID {
			return "", ErrCategoryNotFound
		}
	}
	if req.CardID != nil {
		card, err := s.cards.GetByID(ctx, *req.CardID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", ErrCardNotFound
			}
			return "", err
		}
		if card.UserID != userID {
			return "", ErrCardNotFound
		}
	}

	var transactionID string
	var events []balanceEvent
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		events = events[:0]
		now := s.now()
		record := models.Transaction{
			ID:          uuid.NewString(),
			WalletID:    req.WalletID,
			CardID:      req.CardID,
			CategoryID:  req.CategoryID,
			Kind:        req.Kind,
			Status:      models.StatusCompleted,
			Description: req.Description,
		}
		if req.Recurring {
			next := now.Add(req.Interval)
			record.IsRecurring = true
			record.IsActive = true
			record.Interval = req.Interval
			record.NextExecutionAt = &next
		}

		switch req.Kind {
		case models.KindTransfer:
			source, recipient, err := s.lockTwoWallets(ctx, tx, req.WalletID, *req.RecipientWalletID)
			if err != nil {
				return err
			}
			members, err := s.wallets.GetMembers(ctx, source.ID)
			if err != nil {
				return err
			}
			if err := ValidateWalletOwnership(source, members, userID); err != nil {
				return err
			}
			if err := ValidateOverdraftAndBalance(source, req.Amount); err != nil {
				return err
			}
			converted, err := s.converter.Convert(ctx, req.Amount, source.Currency, recipient.Currency)
			if err != nil {
				return err
			}
			record.RecipientWalletID = &recipient.ID
			record.Amount = converted
			record.OriginalAmount = req.Amount
			record.OriginalCurrency = source.Currency
			record.SentCurrency = recipient.Currency

			newSource := source.Balance.Sub(req.Amount)
			newRecipient := recipient.Balance.Add(converted)
			if err := s.wallets.UpdateBalance(ctx, tx, source.ID, newSource); err != nil {
				return err
			}
			if err := s.wallets.UpdateBalance(ctx, tx, recipient.ID, newRecipient); err != nil {
				return err
			}
			if err := s.transactions.Create(ctx, tx, record); err != nil {
				return err
			}
			entries := []store.LedgerEntryInput{
				{
					ID:            uuid.NewString(),
					TransactionID: record.ID,
					WalletID:      source.ID,
					Amount:        req.Amount.Neg(),
					Currency:      source.Currency,
					Description:   "Transfer debit",
				},
				{
					ID:            uuid.NewString(),
					TransactionID: record.ID,
					WalletID:      recipient.ID,
					Amount:        converted,
					Currency:      recipient.Currency,
					Description:   "Transfer credit",
				},
			}
			if err := s.ledger.InsertEntries(ctx, tx, entries); err != nil {
				return err
			}
			events = append(events,
				balanceEvent{source.UserID, websocket.BalanceUpdate{WalletID: source.ID, Balance: money.Format(newSource), Currency: source.Currency}},
				balanceEvent{recipient.UserID, websocket.BalanceUpdate{WalletID: recipient.ID, Balance: money.Format(newRecipient), Currency: recipient.Currency}},
			)

		case models.KindWithdraw, models.KindDeposit:
			source, err := s.wallets.GetForUpdate(ctx, tx, req.WalletID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrWalletNotFound
				}
				return err
			}
			members, err := s.wallets.GetMembers(ctx, source.ID)
			if err != nil {
				return err
			}
			if err := ValidateWalletOwnership(source, members, userID); err != nil {
				return err
			}
			record.Amount = req.Amount
			record.OriginalAmount = req.Amount
			record.OriginalCurrency = source.Currency
			record.SentCurrency = source.Currency

			var newBalance decimal.Decimal
			delta := req.Amount
			description := "Deposit credit"
			if req.Kind == models.KindWithdraw {
				if err := ValidateOverdraftAndBalance(source, req.Amount); err != nil {
					return err
				}
				newBalance = source.Balance.Sub(req.Amount)
				delta = req.Amount.Neg()
				description = "Withdrawal debit"
			} else {
				newBalance = source.Balance.Add(req.Amount)
			}
			if err := s.wallets.UpdateBalance(ctx, tx, source.ID, newBalance); err != nil {
				return err
			}
			if err := s.transactions.Create(ctx, tx, record); err != nil {
				return err
			}
			entries := []store.LedgerEntryInput{{
				ID:            uuid.NewString(),
				TransactionID: record.ID,
				WalletID:      source.ID,
				Amount:        delta,
				Currency:      source.Currency,
				Description:   description,
			}}
			if err := s.ledger.InsertEntries(ctx, tx, entries); err != nil {
				return err
			}
			events = append(events, balanceEvent{source.UserID, websocket.BalanceUpdate{WalletID: source.ID, Balance: money.Format(newBalance), Currency: source.Currency}})

		default:
			return ErrInvalidRequest
		}

		transactionID = record.ID
		data, _ := json.Marshal(map[string]string{"transaction_id": record.ID, "kind": req.Kind})
		return s.audit.Log(ctx, tx, userID, "transaction_settled", "transaction", record.ID, string(data))
	})
	if err != nil {
		if db.IsConflict(err) {
			return "", ErrConflict
		}
		return "", err
	}
	for _, event := range events {
		s.hub.BroadcastBalance(event.userID, event.update)
	}
	return transactionID, nil
}

// CancelRecurringTransaction deactivates the recurrence template; already
// spawned occurrences are untouched.
func (s *TransactionService) CancelRecurringTransaction(ctx context.Context, transactionID, userID string) error {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransactionNotFound
		}
		return err
	}
	if !t.IsRecurring {
		return ErrNotRecurring
	}
	wallet, err := s.wallets.GetByID(ctx, t.WalletID)
	if err != nil {
		return err
	}
	members, err := s.wallets.GetMembers(ctx, wallet.ID)
	if err != nil {
		return err
	}
	if err := ValidateWalletOwnership(wallet, members, userID); err != nil {
		return ErrUnauthorizedTransaction
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.transactions.DeactivateRecurrence(ctx, tx, transactionID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, userID, "recurrence_cancelled", "transaction", transactionID, "{}")
	})
}

// AddTransactionToCategory associates an existing transaction with one of
// the user's categories.
func (s *TransactionService) AddTransactionToCategory(ctx context.Context, transactionID, categoryID, userID string) error {
	t, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransactionNotFound
		}
		return err
	}
	wallet, err := s.wallets.GetByID(ctx, t.WalletID)
	if err != nil {
		return err
	}
	members, err := s.wallets.GetMembers(ctx, wallet.ID)
	if err != nil {
		return err
	}
	if err := ValidateWalletOwnership(wallet, members, userID); err != nil {
		return ErrUnauthorizedTransaction
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return err
	}
	if category.UserID != userID {
		return ErrCategoryNotFound
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transactions.SetCategory(ctx, tx, transactionID, categoryID)
	})
}

// UpdateOverdraftPolicy tunes the global default overdraft settings that
// newly created wallets inherit. Admin only.
func (s *TransactionService) UpdateOverdraftPolicy(ctx context.Context, adminID string, enabled bool, limit decimal.Decimal) error {
	if limit.IsNegative() {
		return ErrInvalidAmount
	}
	isAdmin, err := s.policies.IsAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrNotAdmin
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.policies.SetOverdraftPolicy(ctx, tx, enabled, limit, adminID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"enabled": enabled, "limit": limit.StringFixedBank(2)})
		return s.audit.Log(ctx, tx, adminID, "overdraft_policy_updated", "policy", "global", string(data))
	})
}

// SetExchangeRate activates a new conversion rate for a currency pair and
// retires the previous one. Admin only.
func (s *TransactionService) SetExchangeRate(ctx context.Context, adminID, baseCurrency, quoteCurrency string, rate decimal.Decimal) (string, error) {
	if !rate.IsPositive() {
		return "", ErrInvalidAmount
	}
	if baseCurrency == quoteCurrency {
		return "", ErrInvalidRequest
	}
	isAdmin, err := s.policies.IsAdmin(ctx, adminID)
	if err != nil {
		return "", err
	}
	if !isAdmin {
		return "", ErrNotAdmin
	}
	var rateID string
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rateID, err = s.rates.SetRate(ctx, tx, baseCurrency, quoteCurrency, rate.String(), adminID)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"base": baseCurrency, "quote": quoteCurrency, "rate": rate.String()})
		return s.audit.Log(ctx, tx, adminID, "exchange_rate_updated", "exchange_rate", rateID, string(data))
	})
	if err != nil {
		return "", err
	}
	return rateID, nil
}

// ListAuditLogs pages through the audit trail, newest first. Admin only.
func (s *TransactionService) ListAuditLogs(ctx context.Context, adminID string, limit, offset int) ([]map[string]any, error) {
	isAdmin, err := s.policies.IsAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotAdmin
	}
	return s.audit.List(ctx, limit, offset)
}

func validateRequest(req CreateRequest) error {
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch req.Kind {
	case models.KindTransfer:
		if req.RecipientWalletID == nil || *req.RecipientWalletID == "" {
			return ErrInvalidRequest
		}
		if *req.RecipientWalletID == req.WalletID {
			return ErrSameWalletTransfer
		}
		if req.CardID != nil {
			return ErrInvalidRequest
		}
	case models.KindDeposit, models.KindWithdraw:
		if req.RecipientWalletID != nil {
			return ErrInvalidRequest
		}
	default:
		return ErrInvalidRequest
	}
	if req.Recurring && req.Interval <= 0 {
		return ErrInvalidRequest
	}
	return nil
}

// lockTwoWallets acquires row locks in a deterministic order so two
// opposing transfers cannot deadlock.
func (s *TransactionService) lockTwoWallets(ctx context.Context, tx store.Getter, firstID, secondID string) (models.Wallet, models.Wallet, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := s.wallets.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, models.Wallet{}, notFoundFor(leftID, firstID)
		}
		return models.Wallet{}, models.Wallet{}, err
	}
	right, err := s.wallets.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, models.Wallet{}, notFoundFor(rightID, firstID)
		}
		return models.Wallet{}, models.Wallet{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func notFoundFor(missingID, sourceID string) error {
	if missingID == sourceID {
		return ErrWalletNotFound
	}
	return ErrRecipientNotFound
}
