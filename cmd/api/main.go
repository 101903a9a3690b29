package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/velesmarket/backend/api/routes"
	"github.com/velesmarket/backend/internal/cart"
	"github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/internal/marketplace/ozon"
	"github.com/velesmarket/backend/internal/marketplace/wildberries"
	products "github.com/velesmarket/backend/internal/products"
	"github.com/velesmarket/backend/internal/reconcile"
	"github.com/velesmarket/backend/internal/settings"
	"github.com/velesmarket/backend/pkg/config"
	"github.com/velesmarket/backend/pkg/db"
	"github.com/velesmarket/backend/pkg/enums"
	"github.com/velesmarket/backend/pkg/logger"
	"github.com/velesmarket/backend/pkg/metrics"
	"github.com/velesmarket/backend/pkg/migrate"
	"github.com/velesmarket/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	services, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, services),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	gormDB := dbClient.DB()

	wbClient, err := wildberries.NewClient(cfg.Marketplace, logg)
	if err != nil {
		return routes.Services{}, err
	}
	ozonClient, err := ozon.NewClient(cfg.Marketplace, logg)
	if err != nil {
		return routes.Services{}, err
	}
	clients := marketplace.ClientSet{
		enums.MarketplaceWildberries: wbClient,
		enums.MarketplaceOzon:        ozonClient,
	}

	productRepo := products.NewRepository(gormDB)
	productService, err := products.NewService(productRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	settingsService, err := settings.NewService(settings.NewRepository(gormDB), cfg.Pricing)
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cart.NewService(cart.NewRepository(gormDB), productRepo, settingsService)
	if err != nil {
		return routes.Services{}, err
	}

	marketplaceService, err := marketplace.NewService(marketplace.NewRepository(gormDB), dbClient, clients)
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}

	return routes.Services{
		Products:    productService,
		Cart:        cartService,
		Settings:    settingsService,
		Marketplace: marketplaceService,
		Reconcile:   reconcileService,
	}, nil
}
