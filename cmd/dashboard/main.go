// Command dashboard serves the hive dashboard gateway: the session manager
// behind /api/session and a proxy to the hive backend for the views.
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
	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/api"
	"github.com/beesense/hive-dashboard/internal/api/handler"
	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
	"github.com/beesense/hive-dashboard/internal/core/service"
	"github.com/beesense/hive-dashboard/internal/infrastructure/backend"
	mongodb "github.com/beesense/hive-dashboard/internal/infrastructure/db/mongo"
	redisdb "github.com/beesense/hive-dashboard/internal/infrastructure/db/redis"
	"github.com/beesense/hive-dashboard/internal/infrastructure/store"
	"github.com/beesense/hive-dashboard/internal/pkg/config"
	"github.com/beesense/hive-dashboard/internal/pkg/metrics"
	"github.com/beesense/hive-dashboard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "dashboard",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Session.Store).Msg("session store")
	}
	defer closeStore()

	client := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})

	var demo ports.DemoIssuer = service.NewLocalDemoIssuer(cfg.JWTSecret, cfg.Session.DemoTTL, nil)
	if cfg.Session.DemoSource == config.DemoSourceRemote {
		demo = client
	}

	mgr := service.NewSessionManager(client, demo, sessions, logger.Component("session"), service.SessionManagerOptions{
		DemoTTL: cfg.Session.DemoTTL,
	})
	mgr.Subscribe(metrics.SessionObserver())
	mgr.Init(ctx)

	e := api.NewDashboardRouter(api.DashboardDeps{
		Sessions: mgr,
		Backend:  client,
		Checks: map[string]handler.Check{
			"backend": client.Ping,
			"session_store": func(ctx context.Context) error {
				_, err := sessions.Get(ctx, domain.SessionRecordKey)
				if errors.Is(err, domain.ErrKeyNotFound) {
					return nil
				}
				return err
			},
		},
		Log: logger.Component("http"),
	})

	serve(ctx, log, e.Start, e.Shutdown, cfg.Port)
}

// openSessionStore builds the configured SessionStore and a func releasing
// whatever connection it holds.
func openSessionStore(ctx context.Context, cfg *config.Config) (ports.SessionStore, func(), error) {
	noop := func() {}
	switch cfg.Session.Store {
	case config.StoreMemory:
		return store.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, noop, err
		}
		return redisdb.NewSessionStore(client, "hive_dashboard:"+cfg.Session.Scope), func() { _ = client.Close() }, nil
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, noop, err
		}
		s := mongodb.NewSessionStore(db, cfg.Session.Scope)
		if err := mongodb.EnsureIndexes(ctx, s); err != nil {
			mongodb.Disconnect(client)
			return nil, noop, err
		}
		return s, func() { mongodb.Disconnect(client) }, nil
	default:
		s, err := store.NewFileStore(cfg.Session.FilePath)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}
}

// serve runs start until ctx is cancelled, then shuts the server down.
func serve(
	ctx context.Context,
	log zerolog.Logger,
	start func(address string) error,
	shutdown func(ctx context.Context) error,
	port string,
) {
	go func() {
		log.Info().Str("port", port).Msg("listening")
		if err := start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
