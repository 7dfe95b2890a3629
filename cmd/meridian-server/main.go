// Package main is the entry point for the Meridian back-office server.
// Meridian manages a vehicle dealership: vehicles, clients, sales, financing
// contracts, maintenance records and file attachments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/auth"
	memorycache "github.com/meridian-motors/meridian-backoffice/internal/cache/memory"
	rediscache "github.com/meridian-motors/meridian-backoffice/internal/cache/redis"
	"github.com/meridian-motors/meridian-backoffice/internal/config"
	"github.com/meridian-motors/meridian-backoffice/internal/handler"
	"github.com/meridian-motors/meridian-backoffice/internal/lock"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
	"github.com/meridian-motors/meridian-backoffice/internal/repository/sqlite"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
	locastorage "github.com/meridian-motors/meridian-backoffice/internal/storage/local"
	s3storage "github.com/meridian-motors/meridian-backoffice/internal/storage/s3"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Meridian back-office server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database driver %q is not wired for serving; use sqlite", cfg.Database.Driver)
	}
	db, err := sqlite.NewDB(ctx, sqliteConfig(cfg.Database), logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	repos := sqlite.NewRepositories(db)

	// Redis-backed lock and cache in multi-node deployments; in-process
	// fallbacks otherwise.
	var (
		locker lock.Locker
		cache  repository.Cache
	)
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		locker = lock.NewRedisLocker(client)
		cache = rediscache.New(client, "meridian")
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("redis lock and cache enabled")
	} else {
		memLocker := lock.NewMemoryLocker()
		defer memLocker.Close()
		locker = memLocker
		cache = memorycache.New()
	}

	// Blob storage backend
	var (
		backend       storage.Backend
		localFilesDir string
	)
	switch cfg.Storage.Backend {
	case "local":
		local, err := locastorage.New(cfg.Storage.DataDir, cfg.Storage.PublicBaseURL, logger)
		if err != nil {
			return fmt.Errorf("failed to init local storage: %w", err)
		}
		backend = local
		localFilesDir = local.DataDir()
	case "s3":
		backend, err = s3storage.New(ctx, cfg.Storage.S3, cfg.Storage.PublicBaseURL, logger)
		if err != nil {
			return fmt.Errorf("failed to init s3 storage: %w", err)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// Metrics
	var mtr *metrics.Metrics
	if cfg.Metrics.Enabled {
		mtr = metrics.New()
	}

	// Auth
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	// Services
	vehicles := service.NewVehicleService(repos.Vehicle, cache, logger)
	clients := service.NewClientService(repos.Client, logger)
	sales := service.NewSaleService(repos.Sale, repos.Vehicle, repos.Client, repos.Tx, locker, cache, mtr, logger)
	financings := service.NewFinancingService(repos.Financing, repos.Vehicle, repos.Client, repos.Tx, locker, cache, mtr, logger)
	maintenances := service.NewMaintenanceService(repos.Maintenance, repos.Vehicle, repos.Tx, locker, cache, mtr, logger)
	attachments := service.NewAttachmentService(repos.Attachment, repos.Vehicle, backend, mtr, logger)
	users := service.NewUserService(repos.User, hasher, tokens, logger)

	// Pending-upload sweeper
	sweeper := service.NewUploadSweeper(repos.Attachment, backend, locker, mtr, logger, service.SweeperConfig{
		Enabled:     cfg.Sweeper.Enabled,
		Interval:    cfg.Sweeper.Interval,
		GracePeriod: cfg.Sweeper.GracePeriod,
		BatchSize:   cfg.Sweeper.BatchSize,
	})
	if cfg.Sweeper.Enabled {
		sweeper.Start()
		defer sweeper.Stop()
	}

	// HTTP surface
	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:        handler.NewAuthHandler(users, logger),
		VehicleHandler:     handler.NewVehicleHandler(vehicles, logger),
		ClientHandler:      handler.NewClientHandler(clients, logger),
		SaleHandler:        handler.NewSaleHandler(sales, logger),
		FinancingHandler:   handler.NewFinancingHandler(financings, logger),
		MaintenanceHandler: handler.NewMaintenanceHandler(maintenances, logger),
		AttachmentHandler:  handler.NewAttachmentHandler(attachments, cfg.Server.MaxBodySize, logger),
		TokenManager:       tokens,
		Metrics:            mtr,
		MetricsPath:        cfg.Metrics.Path,
		Database:           db,
		LocalFilesDir:      localFilesDir,
		Logger:             logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// sqliteConfig maps the application database config onto the driver config.
func sqliteConfig(cfg config.DatabaseConfig) sqlite.Config {
	sc := sqlite.DefaultConfig(cfg.Path)
	if cfg.JournalMode != "" {
		sc.JournalMode = cfg.JournalMode
	}
	if cfg.BusyTimeout > 0 {
		sc.BusyTimeout = cfg.BusyTimeout
	}
	if cfg.CacheSize != 0 {
		sc.CacheSize = cfg.CacheSize
	}
	if cfg.SynchronousMode != "" {
		sc.SynchronousMode = cfg.SynchronousMode
	}
	return sc
}

// newLogger builds the root logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat
	if zerolog.TimeFieldFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	logger := zerolog.New(out)
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
