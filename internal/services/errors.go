package services

import "errors"

var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrRecipientNotFound       = errors.New("recipient wallet not found")
	ErrCardNotFound            = errors.New("card not found")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrUnauthorizedWallet      = errors.New("wallet does not belong to user")
	ErrUnauthorizedTransaction = errors.New("transaction does not belong to user")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidRequest          = errors.New("invalid transaction request")
	ErrSameWalletTransfer      = errors.New("cannot transfer to same wallet")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrVerificationFailed      = errors.New("invalid or expired verification code")
	ErrVerificationExpired     = errors.New("pending transaction expired")
	ErrConflict                = errors.New("concurrent wallet update conflict")
	ErrRateNotSet              = errors.New("exchange rate not set")
	ErrNotRecurring            = errors.New("transaction is not recurring")
	ErrNotAdmin                = errors.New("user is not an administrator")
)
