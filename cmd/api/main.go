package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mocha-tree/investor-portal/investor-portal-backend/internal/auth"
	"mocha-tree/investor-portal/investor-portal-backend/internal/chain"
	"mocha-tree/investor-portal/investor-portal-backend/internal/config"
	"mocha-tree/investor-portal/investor-portal-backend/internal/farms"
	"mocha-tree/investor-portal/investor-portal-backend/internal/holdings"
	"mocha-tree/investor-portal/investor-portal-backend/internal/notifications"
	wsnotify "mocha-tree/investor-portal/investor-portal-backend/internal/notifications/websocket"
	"mocha-tree/investor-portal/investor-portal-backend/internal/pricing"
	"mocha-tree/investor-portal/investor-portal-backend/internal/purchase"
	"mocha-tree/investor-portal/investor-portal-backend/internal/settings"
)

// attemptNotifier bridges orchestrator events to the push service,
// honoring the investor's notification preference.
type attemptNotifier struct {
	service     *notifications.Service
	preferences *settings.Service
}

func (n attemptNotifier) NotifyAttempt(attempt *purchase.Attempt) {
	if !n.preferences.WantsStatusUpdates(context.Background(), attempt.Investor) {
		return
	}
	n.service.NotifyAttemptStatus(attempt.Investor, map[string]interface{}{
		"attempt_id":       attempt.ID.String(),
		"kind":             attempt.Kind,
		"status":           attempt.Status,
		"failure_code":     attempt.FailureCode,
		"failure_message":  attempt.FailureMessage,
		"approval_tx_hash": attempt.ApprovalTxHash,
		"purchase_tx_hash": attempt.PurchaseTxHash,
	})
}

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Chain client
	chainClient, err := chain.NewEVMClient(cfg.Chain, logger)
	if err != nil {
		logger.Fatal("Failed to create chain client", zap.Error(err))
	}

	// Sessions
	sessionService := auth.NewService(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	authHandler := auth.NewHandler(sessionService)

	// Push notifications
	wsManager := wsnotify.NewManager(sessionService.VerifyToken, logger)
	defer wsManager.Close()
	notifyService := notifications.NewService(wsManager)

	// Catalog and holdings
	farmService := farms.NewService(chainClient, logger)
	farmHandler := farms.NewHandler(farmService, logger)
	holdingsService := holdings.NewService(chainClient, logger)
	holdingsHandler := holdings.NewHandler(holdingsService, logger)

	// Investor preferences
	prefsRepo := settings.NewGormRepository(db)
	if err := prefsRepo.Migrate(); err != nil {
		logger.Fatal("Failed to migrate preferences table", zap.Error(err))
	}
	prefsService := settings.NewService(prefsRepo, logger)
	prefsHandler := settings.NewHandler(prefsService, logger)

	// Purchase pipeline
	paymentMode := pricing.Mode(cfg.Chain.PaymentMode)
	calculator := pricing.NewCalculator(cfg.Chain.BondPriceUSD, cfg.Chain.EthPriceUSD, cfg.Chain.TokenDecimals)
	validator := purchase.NewValidator(farmService, holdingsService, chainClient, calculator, purchase.ValidatorConfig{
		MaxBondsPerInvestor: cfg.Chain.MaxBondsPerInvestor,
		Mode:                paymentMode,
		PaymentToken:        common.HexToAddress(cfg.Chain.PaymentTokenAddress),
		Contract:            chainClient.ContractAddress(),
	})
	attemptRepo := purchase.NewGormRepository(db)
	if err := attemptRepo.Migrate(); err != nil {
		logger.Fatal("Failed to migrate attempts table", zap.Error(err))
	}
	orchestrator := purchase.NewOrchestrator(chainClient, chainClient, validator, attemptRepo,
		attemptNotifier{service: notifyService, preferences: prefsService},
		purchase.OrchestratorConfig{
			Mode:                paymentMode,
			PaymentToken:        common.HexToAddress(cfg.Chain.PaymentTokenAddress),
			Contract:            chainClient.ContractAddress(),
			ConfirmationTimeout: cfg.Chain.ConfirmationTimeout,
		}, logger)
	purchaseHandler := purchase.NewHandler(orchestrator, attemptRepo, logger)

	// Stale-attempt sweeper
	sweeper := purchase.NewSweeper(attemptRepo, cfg.Chain.ConfirmationTimeout, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	// Setup router
	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API alive!"})
	})
	router.GET("/ws", func(c *gin.Context) {
		if _, err := wsManager.HandleConnection(c.Writer, c.Request); err != nil {
			logger.Debug("Websocket connection refused", zap.Error(err))
		}
	})

	authGroup := router.Group("/auth")
	authHandler.RegisterRoutes(authGroup)

	apiGroup := router.Group("/api/v1")
	farmHandler.RegisterRoutes(apiGroup)
	holdingsHandler.RegisterRoutes(apiGroup)
	purchaseHandler.RegisterRoutes(apiGroup, sessionService)
	prefsHandler.RegisterRoutes(apiGroup, sessionService)

	server := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
