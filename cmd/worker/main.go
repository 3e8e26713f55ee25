package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tenantPools := persistence.NewTenantPools(logger)
	defer tenantPools.Close()

	tenantRepo := repository.NewTenantRepository(pg.PoolHandle())
	scopes := service.NewScopeProvider(tenantRepo, tenantPools)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	var lease *worker.LeaderLease
	if !*once && redis.Client != nil {
		lease = worker.NewLeaderLease(redis.Client, cfg.Worker.LeaseKey, cfg.Worker.LeaseTTL(), logger)
	}

	notifier := worker.NewBreachNotifier(worker.BreachNotifierDependencies{
		Tenants:    tenantRepo,
		Scopes:     scopes,
		Dispatcher: dispatcher,
		Lease:      lease,
		Logger:     logger,
		Config:     cfg.Worker,
	})

	if *once {
		stats, err := notifier.RunOnce(ctx)
		if err != nil {
			logger.Fatal("sweep failed", zap.Error(err))
		}
		logger.Info("single sweep finished",
			zap.Int("tenants_checked", stats.TenantsChecked),
			zap.Int("notifications_fired", stats.NotificationsFired),
		)
		return
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := notifier.Run(ctx); err != nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}
}
