// Command hivebackend is the development backend the dashboard talks to:
// accounts, hives, sensor reading ingestion and alerts, stored in MongoDB.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/beesense/hive-dashboard/internal/api"
	"github.com/beesense/hive-dashboard/internal/api/handler"
	"github.com/beesense/hive-dashboard/internal/core/service"
	"github.com/beesense/hive-dashboard/internal/infrastructure/dedup"
	mongodb "github.com/beesense/hive-dashboard/internal/infrastructure/db/mongo"
	redisdb "github.com/beesense/hive-dashboard/internal/infrastructure/db/redis"
	"github.com/beesense/hive-dashboard/internal/infrastructure/queue"
	"github.com/beesense/hive-dashboard/internal/pkg/config"
	"github.com/beesense/hive-dashboard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "hivebackend",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- MongoDB ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo")
	}
	defer mongodb.Disconnect(client)

	accountRepo := mongodb.NewAccountRepository(db)
	hiveRepo := mongodb.NewHiveRepository(db)
	readingRepo := mongodb.NewReadingRepository(db)
	alertRepo := mongodb.NewAlertRepository(db)
	if err := mongodb.EnsureIndexes(ctx, accountRepo, hiveRepo, readingRepo, alertRepo); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	checks := map[string]handler.Check{
		"mongodb": mongodb.HealthCheck(client),
	}

	// --- Accounts ---
	accounts := service.NewAccountService(accountRepo, cfg.JWTSecret, cfg.Hive.TokenTTL, cfg.Session.DemoTTL)
	if cfg.Admin.Email != "" {
		if err := accounts.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Fatal().Err(err).Str("email", cfg.Admin.Email).Msg("seed admin")
		}
	}

	// --- Reading ingestion ---
	var checker service.DedupChecker
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer func() { _ = rdb.Close() }()
		checker = redisdb.NewDedupChecker(rdb, "hive_backend:", redisdb.DefaultDedupWindow)
		checks["redis"] = redisdb.HealthCheck(rdb)
	} else {
		mem, err := dedup.NewMemoryChecker(cfg.Hive.DedupCacheSize)
		if err != nil {
			log.Fatal().Err(err).Msg("dedup cache")
		}
		checker = mem
	}

	readings := service.NewReadingService(hiveRepo, readingRepo, alertRepo, checker, logger.Component("readings"))
	dispatcher := queue.NewDispatcher(cfg.Hive.ReadingWorkers, readings, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	e := api.NewBackendRouter(api.BackendDeps{
		Accounts:   accounts,
		Hives:      hiveRepo,
		Readings:   readingRepo,
		Alerts:     alertRepo,
		Dispatcher: dispatcher,
		Checks:     checks,
		JWTSecret:  cfg.JWTSecret,
		Log:        logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Hive.Port).Msg("listening")
		if err := e.Start(":" + cfg.Hive.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
