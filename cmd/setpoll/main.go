package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/veridian-identity/setpoll/internal/archive"
	"github.com/veridian-identity/setpoll/internal/auth"
	"github.com/veridian-identity/setpoll/internal/config"
	"github.com/veridian-identity/setpoll/internal/envelope"
	"github.com/veridian-identity/setpoll/internal/eventstore"
	"github.com/veridian-identity/setpoll/internal/handlers"
	"github.com/veridian-identity/setpoll/internal/logging"
	"github.com/veridian-identity/setpoll/internal/objectstore"
	"github.com/veridian-identity/setpoll/internal/server"
	"github.com/veridian-identity/setpoll/internal/service"
	"github.com/veridian-identity/setpoll/internal/telemetry"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to database migrations")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("setpoll"))
	logging.SetDefault(logger)

	slog.Info("Starting setpoll service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.Bool("attempts_enabled", cfg.Attempts.Enabled),
		slog.Bool("serve_from_archive", cfg.Attempts.ServeFromArchive),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Parse the receiver's RSA public key
	if cfg.Attempts.PublicKey == "" {
		log.Fatal("attempts.public_key is required")
	}
	pubPEM, err := os.ReadFile(cfg.Attempts.PublicKey)
	if err != nil {
		log.Fatalf("Failed to read public key: %v", err)
	}
	publicKey, err := envelope.ParsePublicKey(pubPEM)
	if err != nil {
		log.Fatalf("Failed to parse public key: %v", err)
	}

	// Run database migrations and open the archive repository. Without
	// Postgres, archive lookups fall back to an in-process map; fine for
	// live mode, useless for archived mode across restarts.
	var archives archive.Repository
	if cfg.Postgres.URL != "" {
		m, err := migrate.New(fmt.Sprintf("file://%s", *migrationsPath), cfg.Postgres.URL)
		if err != nil {
			log.Fatalf("Failed to initialize migrations: %v", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		slog.Info("Database migrations applied")

		repo, err := archive.NewPostgresRepository(context.Background(), cfg.Postgres.URL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		archives = repo
		defer repo.Close()
	} else {
		log.Println("Postgres not configured - using in-memory archive repository")
		archives = archive.NewInMemoryRepository()
	}

	// Event store (Redis)
	events, err := eventstore.New(cfg.Redis.URL, cfg.Attempts.EventRetention)
	if err != nil {
		log.Fatalf("Failed to connect to Redis event store: %v", err)
	}
	defer events.Close()

	// Credential digest cache shares the Redis deployment with the event
	// store so rotation invalidates digests everywhere at once.
	var digestStore auth.Store
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		digestStore = auth.NewRedisStore(redis.NewClient(opts))
	} else {
		log.Println("Redis disabled - digest cache is per-process only")
		digestStore = auth.NewMemoryStore()
	}

	authenticator := auth.NewAuthenticator(
		cfg.Attempts.ClientID,
		cfg.Attempts.AuthTokens,
		cfg.Attempts.ScryptCost,
		cfg.Attempts.DigestCacheTTL,
		auth.NewCache(digestStore),
	)

	// Object store for archived bundles
	objects := objectstore.New(cfg.ObjectStore.URL, cfg.ObjectStore.Bucket, cfg.ObjectStore.Timeout)

	// Telemetry: always log locally, publish to NATS when configured
	var sink telemetry.Sink = telemetry.NewLogSink(logger)
	if cfg.NATS.Enabled {
		conn, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			log.Printf("WARNING: Failed to connect to NATS: %v", err)
			log.Println("Continuing with log-only telemetry")
		} else {
			sink = telemetry.MultiSink{sink, telemetry.NewNATSSink(conn, logger)}
			defer conn.Close()
			slog.Info("NATS telemetry enabled", slog.String("url", cfg.NATS.URL))
		}
	}

	pollService := service.NewPollService(events, archives, objects, publicKey, service.Options{
		ServeFromArchive: cfg.Attempts.ServeFromArchive,
		StreamEnabled:    cfg.Attempts.StreamEnabled,
		StreamChunkSize:  cfg.Attempts.StreamChunkSize,
	})

	handler := handlers.NewAttemptsHandler(authenticator, pollService, sink, cfg.Attempts.Enabled, logger)
	router := server.NewRouter(handler)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("setpoll service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
