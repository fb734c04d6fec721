package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	inventoryapp "github.com/shoply/backend/internal/application/inventory"
	paymentapp "github.com/shoply/backend/internal/application/payment"
	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/infrastructure/cache"
	"github.com/shoply/backend/internal/infrastructure/config"
	"github.com/shoply/backend/internal/infrastructure/crypto"
	"github.com/shoply/backend/internal/infrastructure/gateway"
	"github.com/shoply/backend/internal/infrastructure/logger"
	"github.com/shoply/backend/internal/infrastructure/persistence"
	"github.com/shoply/backend/internal/infrastructure/telemetry"
	"github.com/shoply/backend/internal/interfaces/http/handler"
	"github.com/shoply/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting payment engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize tracing
	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 10*time.Second)
	tracer, err := telemetry.NewTracerProvider(tracerCtx, cfg.Telemetry, log)
	tracerCancel()
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	// Initialize database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithOptions(&cfg.Database, persistence.Options{
		Logger:     gormLog,
		EnableOtel: cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Credential store: Redis when configured, in-memory otherwise. The
	// in-memory store forces a token refresh after every restart, which is
	// acceptable for single-node and development setups.
	var credStore payment.CredentialStore
	var credClose func() error
	if cfg.Redis.Host != "" {
		redisStore, err := cache.NewRedisCredentialStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		credStore = redisStore
		credClose = redisStore.Close
		log.Info("Redis credential store connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		memStore := cache.NewInMemoryCredentialStore()
		credStore = memStore
		credClose = memStore.Close
		log.Warn("Redis not configured, using in-memory credential store")
	}
	defer func() {
		if err := credClose(); err != nil {
			log.Error("Error closing credential store", zap.Error(err))
		}
	}()

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)

	var configRepo payment.ProviderConfigRepository = persistence.NewGormProviderConfigRepository(db.DB)
	if cfg.Crypto.OptionsKey != "" {
		cipher, err := crypto.NewOptionsCipher(cfg.Crypto.OptionsKey)
		if err != nil {
			log.Fatal("Failed to initialize options cipher", zap.Error(err))
		}
		configRepo = persistence.NewEncryptedProviderConfigRepository(configRepo, cipher, "access_token")
		log.Info("Provider option encryption enabled")
	} else {
		log.Warn("Options encryption key not set, sensitive provider options stored in plaintext")
	}

	// Initialize gateway client and provider adapters
	gatewayClient := gateway.NewHTTPClient(gateway.ClientConfig{
		RequestTimeout:  cfg.Gateway.RequestTimeout,
		CheckMaxRetries: cfg.Gateway.CheckMaxRetries,
		RetryBaseDelay:  cfg.Gateway.RetryBaseDelay,
		BreakerMaxFails: uint32(cfg.Gateway.BreakerMaxFails),
		BreakerCooldown: cfg.Gateway.BreakerCooldown,
	}, log)
	registry := gateway.DefaultRegistry()

	// Initialize application services
	orchestrator := paymentapp.NewOrchestrator(configRepo, gatewayClient, registry, auditRepo, credStore, log, cfg.Gateway.TokenTTL)
	invoiceService := paymentapp.NewInvoiceService(orchestrator, invoiceRepo, auditRepo, log)
	inventoryService := inventoryapp.NewService(inventoryRepo, log)

	// Build router
	engine := router.New(router.Options{
		Logger:        log,
		EnableTracing: cfg.Telemetry.Enabled,
		ServiceName:   cfg.Telemetry.ServiceName,
	},
		handler.NewPaymentHandler(invoiceService),
		handler.NewInventoryHandler(inventoryService),
		handler.NewHealthHandler(db),
	)

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
