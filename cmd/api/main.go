package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/farehub/card-service/config"
	"github.com/farehub/card-service/internal/catalog"
	catalogRepoPkg "github.com/farehub/card-service/internal/catalog/repository"
	"github.com/farehub/card-service/internal/notify"
	"github.com/farehub/card-service/internal/pkg/broker"
	"github.com/farehub/card-service/internal/pkg/cache"
	"github.com/farehub/card-service/internal/pkg/logger"
	"github.com/farehub/card-service/internal/pkg/postgres"

	cardH "github.com/farehub/card-service/internal/card/handler"
	cardRepoPkg "github.com/farehub/card-service/internal/card/repository"
	cardUCPkg "github.com/farehub/card-service/internal/card/usecase"

	ledgerH "github.com/farehub/card-service/internal/ledger/handler"
	ledgerRepoPkg "github.com/farehub/card-service/internal/ledger/repository"
	ledgerUCPkg "github.com/farehub/card-service/internal/ledger/usecase"

	stockH "github.com/farehub/card-service/internal/stock/handler"
	stockRepoPkg "github.com/farehub/card-service/internal/stock/repository"
	stockUCPkg "github.com/farehub/card-service/internal/stock/usecase"

	purchaseH "github.com/farehub/card-service/internal/purchase/handler"
	purchaseRepoPkg "github.com/farehub/card-service/internal/purchase/repository"
	purchaseUCPkg "github.com/farehub/card-service/internal/purchase/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Producer
	producer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.NotificationsTopic,
	})
	defer producer.Close()
	appLogger.Info("Connected to Kafka Producer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.NotificationsTopic))

	notifier := notify.NewKafkaNotifier(producer, appLogger)

	// 6. Initialize Repositories
	catalogRepo := catalog.NewCachedRepository(catalogRepoPkg.NewPGRepository(db), redisClient, appLogger)
	cardRepo := cardRepoPkg.NewPGRepository(db)
	ledgerRepo := ledgerRepoPkg.NewPGRepository(db)
	stockRepo := stockRepoPkg.NewPGRepository(db)
	purchaseRepo := purchaseRepoPkg.NewPGRepository(db)

	// 7. Initialize UseCases
	cardUC := cardUCPkg.NewCardUseCase(cardRepo, catalogRepo, appLogger)
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(ledgerRepo, appLogger)
	stockUC := stockUCPkg.NewStockUseCase(stockRepo, cardRepo, ledgerRepo, catalogRepo, appLogger)
	purchaseUC := purchaseUCPkg.NewPurchaseUseCase(purchaseRepo, cardRepo, catalogRepo, redisClient, notifier, appLogger)

	// 8. Initialize Handlers
	cardHandler := cardH.NewCardHandler(cardUC, appLogger)
	ledgerHandler := ledgerH.NewLedgerHandler(ledgerUC, appLogger)
	stockHandler := stockH.NewStockHandler(stockUC, appLogger)
	purchaseHandler := purchaseH.NewPurchaseHandler(purchaseUC, appLogger)

	// 9. Router
	if cfg.Server.AppEnv != "dev" && cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "card-service"})
	})

	api := router.Group("/api")
	{
		api.POST("/stock/in", cardHandler.StockIn)
		api.POST("/stock/out", stockHandler.CreateStockOut)
		api.POST("/stock/receipts/:movementID/validate", stockHandler.ValidateReceipt)

		api.GET("/movements", stockHandler.ListMovements)
		api.GET("/movements/:movementID", stockHandler.GetMovement)

		api.POST("/purchases", purchaseHandler.CreatePurchase)
		api.POST("/purchases/:purchaseID/activate", purchaseHandler.ActivateCard)
		api.POST("/purchases/:purchaseID/swap", purchaseHandler.SwapCard)
		api.POST("/purchases/:purchaseID/cancel", purchaseHandler.CancelPurchase)
		api.POST("/purchases/:purchaseID/correct-card", purchaseHandler.CorrectCardMismatch)

		api.GET("/cards/:serial", cardHandler.GetBySerial)
		api.POST("/cards/expire-due", cardHandler.ExpireDue)

		api.GET("/counters", ledgerHandler.ListCounters)
	}

	// 10. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
