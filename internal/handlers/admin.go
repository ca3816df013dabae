package handlers

import (
	"encoding/json"
	"net/http"

	"wallet/internal/middleware"
	"wallet/internal/money"
)

type exchangeRateRequest struct {
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Rate          string `json:"rate"`
}

func (h *Handler) SetExchangeRate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req exchangeRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	rate, err := money.ParseRate(req.Rate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_rate")
		return
	}
	rateID, err := h.service.SetExchangeRate(r.Context(), userID, req.BaseCurrency, req.QuoteCurrency, rate)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"rate_id": rateID})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	limit := parseIntDefault(query.Get("limit"), 50)
	offset := parseIntDefault(query.Get("offset"), 0)
	logs, err := h.service.ListAuditLogs(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if logs == nil {
		logs = []map[string]any{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
