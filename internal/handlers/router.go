package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"wallet/internal/auth"
	"wallet/internal/config"
	"wallet/internal/middleware"
	"wallet/internal/websocket"
)

type Handler struct {
	cfg     config.Config
	service TransactionService
	wallets WalletStore
	hub     *websocket.Hub
}

func New(cfg config.Config, service TransactionService, wallets WalletStore, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		wallets: wallets,
		hub:     hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/transactions", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/", h.CreateTransaction)
		r.Post("/verify", h.VerifyTransaction)
		r.Get("/", h.ListTransactions)
		r.Post("/{id}/cancel-recurrence", h.CancelRecurrence)
		r.Post("/{id}/category", h.Categorize)
	})
	router.Route("/wallets", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/", h.ListWallets)
		r.Post("/", h.CreateWallet)
		r.Get("/{id}/ledger", h.WalletLedger)
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Put("/overdraft-policy", h.UpdateOverdraftPolicy)
		r.Put("/exchange-rates", h.SetExchangeRate)
		r.Get("/audit-logs", h.ListAuditLogs)
	})
	router.Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

// WSBalances upgrades to a websocket pushing balance updates. The token
// rides on the query string because browsers cannot set headers here.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
