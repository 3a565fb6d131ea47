package main

import (
	"context"
	"net/http"
	"os"

	"github.com/equipcare/stockroom-backend/api/routes"
	"github.com/equipcare/stockroom-backend/internal/accesslog"
	"github.com/equipcare/stockroom-backend/internal/catalog"
	"github.com/equipcare/stockroom-backend/internal/doorlock"
	"github.com/equipcare/stockroom-backend/internal/ledger"
	"github.com/equipcare/stockroom-backend/pkg/config"
	"github.com/equipcare/stockroom-backend/pkg/db"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	"github.com/equipcare/stockroom-backend/pkg/metrics"
	"github.com/equipcare/stockroom-backend/pkg/migrate"
	"github.com/equipcare/stockroom-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
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

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(dbClient.DB()), ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	accessLogService, err := accesslog.NewService(accesslog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create access log service", err)
		os.Exit(1)
	}

	var lockClient doorlock.Client
	if !doorlock.Disabled(cfg.DoorLock) {
		lockClient, err = doorlock.NewClient(cfg.DoorLock)
		if err != nil {
			logg.Error(context.Background(), "failed to create door lock client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "door lock base URL not set, cabinet routes run without device control")
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ledgerService,
			catalogService,
			accessLogService,
			lockClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
