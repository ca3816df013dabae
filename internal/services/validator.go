package services

import (
	"github.com/shopspring/decimal"

	"wallet/internal/models"
)

// ValidateOverdraftAndBalance fails when debiting amount would push the
// wallet below its permitted floor: zero without overdraft, minus the
// overdraft limit with it. Pure check, never called for deposits.
func ValidateOverdraftAndBalance(w models.Wallet, amount decimal.Decimal) error {
	floor := decimal.Zero
	if w.OverdraftEnabled {
		floor = w.OverdraftLimit.Neg()
	}
	if w.Balance.Sub(amount).LessThan(floor) {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateWalletOwnership accepts the wallet owner and any joint member.
func ValidateWalletOwnership(w models.Wallet, members []string, userID string) error {
	if w.UserID == userID {
		return nil
	}
	for _, member := range members {
		if member == userID {
			return nil
		}
	}
	return ErrUnauthorizedWallet
}

// IsHighValue reports whether the request must go through out-of-band
// verification: any non-deposit moving more than threshold of the wallet's
// current balance. A risk heuristic, not an invariant.
func IsHighValue(kind string, amount decimal.Decimal, w models.Wallet, threshold decimal.Decimal) bool {
	if kind == models.KindDeposit {
		return false
	}
	return amount.GreaterThan(w.Balance.Mul(threshold))
}
