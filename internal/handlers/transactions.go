package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"wallet/internal/middleware"
	"wallet/internal/models"
	"wallet/internal/money"
	"wallet/internal/services"
	"wallet/internal/validator"
)

type createTransactionRequest struct {
	WalletID          string  `json:"wallet_id"`
	RecipientWalletID *string `json:"recipient_wallet_id"`
	CardID            *string `json:"card_id"`
	CategoryID        *string `json:"category_id"`
	Kind              string  `json:"kind"`
	Amount            string  `json:"amount"`
	Description       string  `json:"description"`
	Recurring         bool    `json:"recurring"`
	IntervalDays      int     `json:"interval_days"`
	PendingToken      *string `json:"pending_token"`
	VerificationCode  string  `json:"verification_code"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.WalletID == "" {
		respondError(w, http.StatusBadRequest, "wallet_id is required")
		return
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if req.Recurring {
		if err := validator.ValidateIntervalDays(req.IntervalDays); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_interval")
			return
		}
	}
	result, err := h.service.CreateTransaction(r.Context(), services.CreateRequest{
		WalletID:          req.WalletID,
		RecipientWalletID: req.RecipientWalletID,
		CardID:            req.CardID,
		CategoryID:        req.CategoryID,
		Kind:              req.Kind,
		Amount:            amount,
		Description:       req.Description,
		Recurring:         req.Recurring,
		Interval:          time.Duration(req.IntervalDays) * 24 * time.Hour,
		PendingToken:      req.PendingToken,
	}, userID, req.VerificationCode)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if result.Verification != nil {
		respondJSON(w, http.StatusAccepted, map[string]any{
			"status":              "verification_required",
			"token":               result.Verification.Token,
			"wallet_id":           result.Verification.WalletID,
			"amount":              money.Format(result.Verification.Amount),
			"description":         result.Verification.Description,
			"recipient_wallet_id": result.Verification.RecipientWalletID,
		})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": result.TransactionID})
}

type verifyTransactionRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

func (h *Handler) VerifyTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verifyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateVerificationCode(req.Code); err != nil {
		respondError(w, http.StatusBadRequest, "verification_failed")
		return
	}
	transactionID, err := h.service.VerifyTransaction(r.Context(), req.Token, req.Code, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"transaction_id": transactionID})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	page := parseIntDefault(query.Get("page"), 1)
	pageSize := parseIntDefault(query.Get("page_size"), 10)
	filter := services.Filter{
		Kind:      query.Get("kind"),
		WalletID:  query.Get("wallet_id"),
		Currency:  query.Get("currency"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("order"),
	}
	if raw := query.Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		filter.Date = &parsed
	}
	if raw := query.Get("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		filter.StartDate = &parsed
	}
	if raw := query.Get("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		filter.EndDate = &parsed
	}
	result, err := h.service.FilterTransactions(r.Context(), page, pageSize, filter, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items":       result.Items,
		"total_count": result.TotalCount,
		"page":        result.Page,
		"page_size":   result.PageSize,
	})
}

func (h *Handler) CancelRecurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	transactionID := chi.URLParam(r, "id")
	if err := h.service.CancelRecurringTransaction(r.Context(), transactionID, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type categorizeRequest struct {
	CategoryID string `json:"category_id"`
}

func (h *Handler) Categorize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CategoryID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	transactionID := chi.URLParam(r, "id")
	if err := h.service.AddTransactionToCategory(r.Context(), transactionID, req.CategoryID, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "categorized"})
}

type overdraftPolicyRequest struct {
	Enabled bool   `json:"enabled"`
	Limit   string `json:"limit"`
}

func (h *Handler) UpdateOverdraftPolicy(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req overdraftPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	limit, err := money.ParseAmount(req.Limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	if err := h.service.UpdateOverdraftPolicy(r.Context(), userID, req.Enabled, limit); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallets, err := h.wallets.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	respondJSON(w, http.StatusOK, wallets)
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
