package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"wallet/internal/models"
	"wallet/internal/money"
	"wallet/internal/store"
	"wallet/internal/websocket"
)

// ProcessRecurringTransactions re-executes every due recurring template.
// Items are processed independently; one failure is logged and does not
// abort the rest of the batch. Recurring payments are pre-approved, so
// escalation is bypassed entirely.
func (s *TransactionService) ProcessRecurringTransactions(ctx context.Context) error {
	due, err := s.transactions.ListRecurringDue(ctx, s.now())
	if err != nil {
		return err
	}
	for _, template := range due {
		if err := s.executeRecurring(ctx, template); err != nil {
			logrus.WithError(err).WithField("transaction_id", template.ID).Warn("recurring execution failed")
		}
	}
	return nil
}

func (s *TransactionService) executeRecurring(ctx context.Context, template models.Transaction) error {
	var events []balanceEvent
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		events = events[:0]
		now := s.now()
		var source, recipient models.Wallet
		var err error
		if template.Kind == models.KindTransfer {
			// Both rows lock in the same deterministic order as on-demand
			// transfers, or a due template racing a live transfer between
			// the same pair could deadlock.
			source, recipient, err = s.lockTwoWallets(ctx, tx, template.WalletID, *template.RecipientWalletID)
		} else {
			source, err = s.wallets.GetForUpdate(ctx, tx, template.WalletID)
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrWalletNotFound
			}
		}
		if err != nil {
			return err
		}
		amount := template.OriginalAmount

		// Insufficient funds deactivates the template instead of failing
		// the batch; no occurrence is recorded and nothing is retried.
		if template.Kind != models.KindDeposit && source.Balance.LessThan(amount) {
			return s.transactions.DeactivateRecurrence(ctx, tx, template.ID)
		}

		occurrence := models.Transaction{
			ID:               uuid.NewString(),
			WalletID:         template.WalletID,
			CardID:           template.CardID,
			CategoryID:       template.CategoryID,
			Kind:             template.Kind,
			Status:           models.StatusCompleted,
			OriginalAmount:   amount,
			OriginalCurrency: source.Currency,
			SentCurrency:     source.Currency,
			Description:      template.Description,
		}

		switch template.Kind {
		case models.KindTransfer:
			converted, err := s.converter.Convert(ctx, amount, source.Currency, recipient.Currency)
			if err != nil {
				return err
			}
			occurrence.RecipientWalletID = &recipient.ID
			occurrence.Amount = converted
			occurrence.SentCurrency = recipient.Currency

			newSource := source.Balance.Sub(amount)
			newRecipient := recipient.Balance.Add(converted)
			if err := s.wallets.UpdateBalance(ctx, tx, source.ID, newSource); err != nil {
				return err
			}
			if err := s.wallets.UpdateBalance(ctx, tx, recipient.ID, newRecipient); err != nil {
				return err
			}
			events = append(events,
				balanceEvent{source.UserID, websocket.BalanceUpdate{WalletID: source.ID, Balance: money.Format(newSource), Currency: source.Currency}},
				balanceEvent{recipient.UserID, websocket.BalanceUpdate{WalletID: recipient.ID, Balance: money.Format(newRecipient), Currency: recipient.Currency}},
			)
		case models.KindWithdraw:
			occurrence.Amount = amount
			newBalance := source.Balance.Sub(amount)
			if err := s.wallets.UpdateBalance(ctx, tx, source.ID, newBalance); err != nil {
				return err
			}
			events = append(events, balanceEvent{source.UserID, websocket.BalanceUpdate{WalletID: source.ID, Balance: money.Format(newBalance), Currency: source.Currency}})
		case models.KindDeposit:
			occurrence.Amount = amount
			newBalance := source.Balance.Add(amount)
			if err := s.wallets.UpdateBalance(ctx, tx, source.ID, newBalance); err != nil {
				return err
			}
			events = append(events, balanceEvent{source.UserID, websocket.BalanceUpdate{WalletID: source.ID, Balance: money.Format(newBalance), Currency: source.Currency}})
		default:
			return ErrInvalidRequest
		}

		// The template keeps ticking; only the spawned occurrence is a
		// static historical record.
		if err := s.transactions.AdvanceRecurrence(ctx, tx, template.ID, now, now.Add(template.Interval)); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, occurrence); err != nil {
			return err
		}
		delta := occurrence.Amount
		if template.Kind != models.KindDeposit {
			delta = amount.Neg()
		}
		entries := []store.LedgerEntryInput{{
			ID:            uuid.NewString(),
			TransactionID: occurrence.ID,
			WalletID:      source.ID,
			Amount:        delta,
			Currency:      source.Currency,
			Description:   "Recurring " + template.Kind,
		}}
		if occurrence.RecipientWalletID != nil {
			entries = append(entries, store.LedgerEntryInput{
				ID:            uuid.NewString(),
				TransactionID: occurrence.ID,
				WalletID:      *occurrence.RecipientWalletID,
				Amount:        occurrence.Amount,
				Currency:      occurrence.SentCurrency,
				Description:   "Recurring transfer credit",
			})
		}
		return s.ledger.InsertEntries(ctx, tx, entries)
	})
	if err != nil {
		return err
	}
	for _, event := range events {
		s.hub.BroadcastBalance(event.userID, event.update)
	}
	return nil
}
