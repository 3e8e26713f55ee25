package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/ai"
	httptransport "github.com/spec-kit/sla-engine/internal/api/http"
	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/scoring"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tenantPools := persistence.NewTenantPools(logger)
	defer tenantPools.Close()

	tenantRepo := repository.NewTenantRepository(pg.PoolHandle())
	scopes := service.NewScopeProvider(tenantRepo, tenantPools)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	var classifier ai.Classifier
	if cfg.AI.Endpoint != "" {
		classifier = ai.NewCachedClassifier(
			ai.NewHTTPClient(cfg.AI, logger),
			redis.Client,
			cfg.AI.CacheTTL(),
			logger,
		)
	}
	scorer := scoring.NewScorer(classifier, logger)

	slaService := service.NewSLAService(service.SLADependencies{
		Scopes:     scopes,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	poolService := service.NewPoolService(service.PoolDependencies{
		Scopes:     scopes,
		Scorer:     scorer,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Pool,
	})

	notifier := worker.NewBreachNotifier(worker.BreachNotifierDependencies{
		Tenants:    tenantRepo,
		Scopes:     scopes,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Worker,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 60)
	authMiddleware := auth.NewAuthMiddleware(tokens)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		SLA:            handlers.NewSLAHandler(slaService),
		Pool:           handlers.NewPoolHandler(poolService),
		Admin:          handlers.NewAdminHandler(notifier, metrics),
		AuthMiddleware: authMiddleware,
		AdminTokenHash: cfg.Auth.AdminTokenHash,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
