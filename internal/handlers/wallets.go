package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wallet/internal/middleware"
	"wallet/internal/services"
)

type createWalletRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Kind     string `json:"kind"`
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	wallet, err := h.service.CreateWallet(r.Context(), userID, services.CreateWalletRequest{
		Name:     req.Name,
		Currency: req.Currency,
		Kind:     req.Kind,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, wallet)
}

func (h *Handler) WalletLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	limit := parseIntDefault(query.Get("limit"), 50)
	offset := parseIntDefault(query.Get("offset"), 0)
	entries, err := h.service.WalletLedger(r.Context(), chi.URLParam(r, "id"), userID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []map[string]any{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
