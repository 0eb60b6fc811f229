package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/datalexum/aquawiz-monitor/internal/aquawiz"
	"github.com/datalexum/aquawiz-monitor/internal/coordinator"
	"github.com/datalexum/aquawiz-monitor/internal/database"
	"github.com/datalexum/aquawiz-monitor/internal/handlers"
	"github.com/datalexum/aquawiz-monitor/internal/middleware"
	"github.com/datalexum/aquawiz-monitor/internal/scheduler"
	"github.com/datalexum/aquawiz-monitor/internal/statistics"
	"github.com/datalexum/aquawiz-monitor/pkg/cache"
	"github.com/datalexum/aquawiz-monitor/pkg/config"
)

func main() {
	// Load configuration first so logging can be set up per environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("device_id", cfg.AquaWiz.DeviceID).
		Dur("update_interval", cfg.AquaWiz.UpdateInterval).
		Msg("Starting AquaWiz monitor")

	// PostgreSQL holds the long-term statistics series
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.RunMigrations(migrateCtx, statistics.MigrationSQL); err != nil {
		cancelMigrate()
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	cancelMigrate()

	// Redis keeps the latest snapshot warm across restarts
	redisDB, err := database.NewRedisDB(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisDB.Close()

	var snapshotCache *cache.SnapshotCache
	if cfg.Cache.Enabled {
		snapshotCache = cache.NewSnapshotCache(cache.New(redisDB.Client()), cfg.Cache.SnapshotTTL)
	}

	client := aquawiz.NewClient()
	if cfg.AquaWiz.BaseURL != "" {
		client.SetBaseURL(cfg.AquaWiz.BaseURL)
	}

	sink := statistics.NewPostgresSink(db)

	// coordinator.SnapshotStore is a nil interface unless caching is on
	var store coordinator.SnapshotStore
	if snapshotCache != nil {
		store = snapshotCache
	}

	coord := coordinator.New(client, sink, store, &cfg.AquaWiz)

	// Fail fast on bad credentials or an empty account before the poll
	// loop starts
	validateCtx, cancelValidate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := coord.ValidateDevice(validateCtx); err != nil {
		cancelValidate()
		log.Fatal().Err(err).Msg("Device validation failed")
	}
	cancelValidate()

	pollCtx, cancelPolls := context.WithCancel(context.Background())
	defer cancelPolls()

	runner := scheduler.NewRunner(coord)
	runner.Start(pollCtx)

	router := setupRouter(cfg, db, redisDB, coord, snapshotCache)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	cancelPolls()
	runner.Stop()
	coord.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}

	// Pretty console output for development
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func setupRouter(
	cfg *config.Config,
	db *database.PostgresDB,
	redisDB *database.RedisDB,
	coord *coordinator.Coordinator,
	snapshotCache *cache.SnapshotCache,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics())
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(db, redisDB, coord)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", middleware.MetricsHandler())

	var fallback handlers.SnapshotReader
	if snapshotCache != nil {
		fallback = snapshotCache
	}
	telemetry := handlers.NewTelemetryHandler(coord, fallback, cfg.AquaWiz.DeviceID)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/device", telemetry.Devices)
		r.Get("/device/latest", telemetry.Latest)
	})

	return r
}
