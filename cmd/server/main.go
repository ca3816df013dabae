package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"wallet/internal/cache"
	"wallet/internal/config"
	"wallet/internal/db"
	"wallet/internal/email"
	"wallet/internal/handlers"
	"wallet/internal/services"
	"wallet/internal/store"
	"wallet/internal/websocket"
)

func main() {
	cfg := config.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect redis: %v", err)
	}

	threshold, err := decimal.NewFromString(cfg.HighValueThreshold)
	if err != nil {
		logrus.Fatalf("invalid high-value threshold %q: %v", cfg.HighValueThreshold, err)
	}

	wallets := store.NewWalletStore(database)
	transactions := store.NewTransactionStore(database)
	cards := store.NewCardStore(database)
	categories := store.NewCategoryStore(database)
	users := store.NewUserStore(database)
	rates := store.NewRateStore(database)
	ledger := store.NewLedgerStore(database)
	audit := store.NewAuditStore(database)
	policies := store.NewPolicyStore(database)
	txRunner := db.NewTxRunner(database)

	ttlCache := cache.New(redisClient)
	sender := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	escalator := services.NewEscalator(ttlCache, sender, cfg.CodeTTL, cfg.PendingTTL)
	converter := services.NewRateConverter(rates)
	hub := websocket.NewHub()

	service := services.NewTransactionService(txRunner, wallets, transactions, cards, categories, users, ledger, audit, policies, rates, converter, escalator, hub, threshold)

	handler := handlers.New(cfg, service, wallets, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go runScheduler(schedulerCtx, service, cfg.SchedulerInterval)

	go func() {
		logrus.Infof("wallet API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("shutdown error: %v", err)
	}
}

// runScheduler drives the recurring processor on a fixed interval until
// ctx is cancelled. Each run is independent; failures are logged and the
// ticker keeps going.
func runScheduler(ctx context.Context, service *services.TransactionService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.ProcessRecurringTransactions(ctx); err != nil {
				logrus.WithError(err).Warn("recurring batch failed")
			}
		}
	}
}
