package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/roamfund/roamfund-backend/config"
	"github.com/roamfund/roamfund-backend/handlers"
	"github.com/roamfund/roamfund-backend/middleware"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config            *config.Config
	RedisClient       *redis.Client
	HealthHandler     *handlers.HealthHandler
	WalletHandler     *handlers.WalletHandler
	ExpenseHandler    *handlers.ExpenseHandler
	WithdrawalHandler *handlers.WithdrawalHandler
}

// SetupRouter configures and returns the main Gin engine with all routes
// defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and metrics routes don't require auth
	r.GET("/health", deps.HealthHandler.ReadinessCheck)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Confirmation endpoints hit the payment providers, so they get a
	// per-user rate limit on top of auth.
	confirmLimiter := middleware.ConfirmRateLimiter(
		deps.RedisClient,
		deps.Config.RateLimit.ConfirmRequestsPerMinute,
		time.Duration(deps.Config.RateLimit.WindowSeconds)*time.Second,
	)

	v1 := r.Group("/v1")
	authRoutes := v1.Group("")
	authRoutes.Use(middleware.AuthMiddleware(&deps.Config.Server))
	{
		// Personal wallet
		walletRoutes := authRoutes.Group("/wallet")
		{
			walletRoutes.GET("", deps.WalletHandler.GetWalletHandler)
			walletRoutes.GET("/transactions", deps.WalletHandler.ListTransactionsHandler)
			walletRoutes.POST("/deposits", deps.WalletHandler.InitiateDepositHandler)
			walletRoutes.POST("/deposits/:txnID/confirm", confirmLimiter, deps.WalletHandler.ConfirmDepositHandler)
		}

		// Trip wallet, expenses and withdrawals
		tripRoutes := authRoutes.Group("/trips/:id")
		{
			tripRoutes.GET("/wallet", deps.WithdrawalHandler.GetTripWalletHandler)
			tripRoutes.POST("/wallet/withdrawals", deps.WithdrawalHandler.InitiateWithdrawalHandler)
			tripRoutes.POST("/wallet/withdrawals/approve", deps.WithdrawalHandler.ApproveWithdrawalHandler)

			expenseRoutes := tripRoutes.Group("/expenses")
			{
				expenseRoutes.POST("", deps.ExpenseHandler.CreateExpenseHandler)
				expenseRoutes.GET("/:expenseID", deps.ExpenseHandler.GetExpenseHandler)
				expenseRoutes.POST("/:expenseID/payments", deps.ExpenseHandler.PayShareHandler)
				expenseRoutes.POST("/:expenseID/payments/:txnID/confirm", confirmLimiter, deps.ExpenseHandler.ConfirmSharePaymentHandler)
			}
		}
	}

	return r
}
