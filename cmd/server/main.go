package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"settlement/internal/app"
	"settlement/internal/config"
	"settlement/internal/handler"
	internalRedis "settlement/internal/redis"
	"settlement/internal/repository"
	"settlement/internal/service"
	"settlement/internal/settlement"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Settlement.Validate(); err != nil {
		logger.Fatal("invalid settlement configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	// Rate plan store.
	db, ratePlanRepo, err := app.NewRatePlanStore(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal("failed to open rate plan store", zap.Error(err))
	}
	defer db.Close()
	logger.Info("rate plan store ready", zap.String("driver", cfg.Database.Driver))

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	// Event broker is optional.
	var publisher service.EventPublisher
	if cfg.Broker.URL != "" {
		broker, err := app.NewBroker(ctx, cfg.Broker, logger)
		if err != nil {
			logger.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer broker.Close()
		publisher = broker
	}

	server, err := wireServer(ctx, ratePlanRepo, redisClient, publisher, nrApp, cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire server", zap.Error(err))
	}

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Allow an in-flight run to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Settlement.RunTimeout+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	ctx context.Context,
	ratePlanRepo repository.RatePlanRepository,
	redisClient *redis.Client,
	publisher service.EventPublisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *zap.Logger,
) (*http.Server, error) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Settlement.PlanCacheTTL)

	// Initialize services.
	notificationService := service.NewNotificationService(publisher, logger.Named("notification"))
	ratePlanService := service.NewRatePlanService(
		ratePlanRepo,
		cacheStore,
		notificationService,
		service.DefaultPlan(cfg.Settlement),
		logger.Named("rate_plan"),
	)
	if err := ratePlanService.EnsureDefaults(ctx); err != nil {
		return nil, err
	}
	settlementService := service.NewSettlementService(
		ratePlanService,
		lockStore,
		notificationService,
		cfg.Settlement,
		logger.Named("settlement"),
	)

	// Initialize handlers.
	settlementHandler := handler.NewSettlementHandler(settlementService, settlement.DefaultOutputSchema(), cfg.Server.MaxBodyBytes)
	ratePlanHandler := handler.NewRatePlanHandler(ratePlanService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		SettlementHandler: settlementHandler,
		RatePlanHandler:   ratePlanHandler,
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
		JWTSecret:         cfg.Auth.JWTSecret,
		Logger:            logger.Named("http"),
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
