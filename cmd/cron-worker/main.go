package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/velesmarket/backend/internal/cron"
	"github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/internal/marketplace/ozon"
	"github.com/velesmarket/backend/internal/marketplace/wildberries"
	products "github.com/velesmarket/backend/internal/products"
	"github.com/velesmarket/backend/internal/reconcile"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/db"
	"github.com/velesmarket/backend/pkg/enums"
	"github.com/velesmarket/backend/pkg/logger"
	"github.com/velesmarket/backend/pkg/metrics"
	"github.com/velesmarket/backend/pkg/migrate"
	"github.com/velesmarket/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	wbClient, err := wildberries.NewClient(cfg.Marketplace, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wildberries client", err)
		os.Exit(1)
	}
	ozonClient, err := ozon.NewClient(cfg.Marketplace, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ozon client", err)
		os.Exit(1)
	}
	clients := marketplace.ClientSet{
		enums.MarketplaceWildberries: wbClient,
		enums.MarketplaceOzon:        ozonClient,
	}

	productRepo := products.NewRepository(dbClient.DB())
	marketplaceService, err := marketplace.NewService(marketplace.NewRepository(dbClient.DB()), dbClient, clients)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace service", err)
		os.Exit(1)
	}

	reconcileMetrics := metrics.NewReconcileMetrics(prometheus.DefaultRegisterer)
	reconcileService, err := reconcile.NewService(
		marketplaceService,
		productRepo,
		clients,
		redisClient,
		reconcileMetrics,
		logg,
		cfg.Reconcile,
		cfg.Marketplace.RequestTimeout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	priceCheckJob, err := cron.NewPriceCheckJob(cron.PriceCheckJobParams{
		Logger:    logg,
		Accounts:  marketplaceService,
		Reconcile: reconcileService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create price check job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(priceCheckJob.Name()), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(priceCheckJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
