package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "domainwatch/internal/http"
	"domainwatch/internal/platform/config"
	"domainwatch/internal/platform/events"
	"domainwatch/internal/platform/httpserver"
	"domainwatch/internal/platform/logger"
	"domainwatch/internal/platform/postgres"
	platformredis "domainwatch/internal/platform/redis"
	"domainwatch/internal/registry/cache"
	"domainwatch/internal/registry/providers"
	"domainwatch/internal/registry/providers/port43"
	"domainwatch/internal/registry/providers/whoisjson"
	"domainwatch/internal/watch/handler"
	"domainwatch/internal/watch/metrics"
	"domainwatch/internal/watch/service"
	"domainwatch/internal/watch/store"
)

// main wires dependencies and owns the server lifecycle. Every backend has an
// in-process fallback so a bare `go run` works without postgres, redis, a
// broker, or an API key.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpapi.HealthCheck{}

	watchStore, closeStore, err := buildStore(ctx, cfg, log, checks)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
	}

	registryClient := buildRegistry(cfg, redisClient, log)
	publisher := buildPublisher(cfg, log)
	defer publisher.Close()

	svc, err := service.New(watchStore, registryClient,
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithMetrics(metrics.New()),
		service.WithCooldownWindow(cfg.Refresh.CooldownWindow),
		service.WithMaxBatchSize(cfg.Refresh.MaxBatchSize),
	)
	if err != nil {
		log.Error("service init failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	router := httpapi.NewRouter(handler.New(svc, log), log, checks)
	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting domainwatch", "addr", cfg.Server.Addr, "provider", registryClient.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildStore opens postgres when configured and falls back to the in-memory
// store for development.
func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]httpapi.HealthCheck) (store.Store, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Warn("no postgres URL configured, using in-memory store")
		return store.NewInMemory(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	checks["postgres"] = db.PingContext
	return pg, func() { db.Close() }, nil
}

// buildRegistry picks the WHOIS provider and wraps it with the response
// cache. The JSON API needs a credential; without one the port 43 fallback
// keeps lookups working, at lower fidelity.
func buildRegistry(cfg config.Config, redisClient *platformredis.Client, log *slog.Logger) *cache.Client {
	var provider providers.Provider
	if cfg.Registry.APIKey != "" {
		provider = whoisjson.New(cfg.Registry.BaseURL, cfg.Registry.APIKey, cfg.Registry.Timeout)
	} else {
		log.Warn("no registry API key configured, using port 43 whois fallback")
		provider = port43.New(cfg.Registry.Timeout)
	}

	var cacheStore cache.Store
	if redisClient != nil {
		cacheStore = cache.NewRedisStore(redisClient.Client, cfg.Registry.CacheTTL)
	} else {
		cacheStore = cache.NewInMemoryStore(cfg.Registry.CacheTTL)
	}
	return cache.New(provider, cacheStore)
}

// buildPublisher connects to kafka when brokers are configured, otherwise
// keeps events in process.
func buildPublisher(cfg config.Config, log *slog.Logger) events.Publisher {
	if len(cfg.Events.Brokers) == 0 {
		return events.NewMemoryPublisher()
	}
	publisher, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, log)
	if err != nil {
		log.Warn("kafka publisher init failed, events stay in process", "error", err)
		return events.NewMemoryPublisher()
	}
	return publisher
}
