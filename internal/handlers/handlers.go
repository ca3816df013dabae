package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wallet/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrWalletNotFound):
		respondError(w, http.StatusNotFound, "wallet_not_found")
	case errors.Is(err, services.ErrRecipientNotFound):
		respondError(w, http.StatusNotFound, "recipient_not_found")
	case errors.Is(err, services.ErrCardNotFound):
		respondError(w, http.StatusNotFound, "card_not_found")
	case errors.Is(err, services.ErrCategoryNotFound):
		respondError(w, http.StatusNotFound, "category_not_found")
	case errors.Is(err, services.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "transaction_not_found")
	case errors.Is(err, services.ErrUnauthorizedWallet), errors.Is(err, services.ErrUnauthorizedTransaction):
		respondError(w, http.StatusForbidden, "access_denied")
	case errors.Is(err, services.ErrNotAdmin):
		respondError(w, http.StatusForbidden, "admin_required")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, services.ErrSameWalletTransfer):
		respondError(w, http.StatusBadRequest, "same_wallet_transfer")
	case errors.Is(err, services.ErrVerificationFailed):
		respondError(w, http.StatusBadRequest, "verification_failed")
	case errors.Is(err, services.ErrVerificationExpired):
		respondError(w, http.StatusBadRequest, "verification_expired")
	case errors.Is(err, services.ErrRateNotSet):
		respondError(w, http.StatusBadRequest, "exchange_rate_not_set")
	case errors.Is(err, services.ErrNotRecurring):
		respondError(w, http.StatusBadRequest, "not_recurring")
	case errors.Is(err, services.ErrConflict):
		respondError(w, http.StatusConflict, "concurrent_update")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}
