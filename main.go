package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/roamfund/roamfund-backend/config"
	"github.com/roamfund/roamfund-backend/db"
	"github.com/roamfund/roamfund-backend/handlers"
	"github.com/roamfund/roamfund-backend/internal/payment"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/internal/store/postgres"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/models/expense"
	"github.com/roamfund/roamfund-backend/models/wallet"
	"github.com/roamfund/roamfund-backend/models/withdrawal"
	"github.com/roamfund/roamfund-backend/router"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	if cfg.IsProduction() {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warnw("Failed to close redis client", "error", err)
		}
	}()

	// Data access
	dataStore := store.Store{
		Users:        postgres.NewUserStore(pool),
		Trips:        postgres.NewTripStore(pool),
		Expenses:     postgres.NewExpenseStore(pool),
		Transactions: postgres.NewTransactionStore(pool),
		Withdrawals:  postgres.NewWithdrawalStore(pool),
	}

	// Payment gateways
	gatewayTimeout := time.Duration(cfg.Payment.TimeoutSeconds) * time.Second
	gateways := payment.NewRegistry(
		payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.APIBase, gatewayTimeout),
		payment.NewRazorpayGateway(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret, cfg.Payment.Razorpay.APIBase, gatewayTimeout),
	)

	// Domain services
	walletService := wallet.NewService(dataStore.Users, dataStore.Transactions, gateways, cfg.Ledger.Currency)
	expenseService := expense.NewService(
		dataStore.Trips, dataStore.Expenses, dataStore.Transactions, gateways,
		cfg.Ledger.Currency, cfg.Ledger.PaymentCutoffHours, cfg.Ledger.SplitExcessPolicy)
	withdrawalService := withdrawal.NewService(dataStore.Trips, dataStore.Withdrawals, cfg.Ledger.Currency)

	deps := router.Dependencies{
		Config:            cfg,
		RedisClient:       redisClient,
		HealthHandler:     handlers.NewHealthHandler(pool, redisClient, cfg.Server.Version),
		WalletHandler:     handlers.NewWalletHandler(walletService),
		ExpenseHandler:    handlers.NewExpenseHandler(expenseService),
		WithdrawalHandler: handlers.NewWithdrawalHandler(withdrawalService),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	log.Info("Server stopped")
}
