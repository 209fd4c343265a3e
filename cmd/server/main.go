package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olh/internal/server/api"
	"olh/internal/server/auth"
	"olh/internal/server/config"
	"olh/internal/server/database"
	"olh/internal/server/push"
	"olh/internal/server/ratelimit"
	"olh/internal/server/service"
	"olh/internal/server/storage"
)

// backend is everything the server persists, plus the database health probe.
type backend interface {
	service.Repository
	push.Subscriptions
	storage.BlobReferences
	api.HealthChecker
}

type pgBackend struct {
	*database.Repository
	*database.DB
}

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"max_file_size", cfg.MaxFileSize,
		"push_enabled", cfg.PushEnabled(),
	)

	ctx := context.Background()

	// Connect to database
	repo, closeDB, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	// Initialize storage
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		slog.Error("failed to initialize token issuer", "error", err)
		os.Exit(1)
	}

	// Push delivery
	var sender push.Sender = push.LogSender{}
	if cfg.PushEnabled() {
		fcm, err := push.NewFCMSender(ctx, cfg.FCM.ProjectID, cfg.FCM.CredentialsFile, cfg.BaseURL)
		if err != nil {
			slog.Error("failed to initialize FCM", "error", err)
			os.Exit(1)
		}
		sender = fcm
		slog.Info("push delivery via FCM", "project_id", cfg.FCM.ProjectID)
	} else {
		slog.Warn("FCM credentials not configured, push notifications will only be logged")
	}
	dispatcher := push.NewDispatcher(repo, sender, cfg.PushTimeout)

	// Initialize services
	materials := service.NewMaterialService(repo, store, dispatcher, cfg)
	handler := api.NewHandler(api.Services{
		Materials:     materials,
		Moderation:    service.NewModerationService(repo, materials, dispatcher),
		Requests:      service.NewRequestService(repo),
		Notifications: service.NewNotificationService(repo),
		Users:         service.NewUserService(repo, tokens),
		Push:          dispatcher,
	}, repo)

	// Start cleanup service
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cleanup := storage.NewCleanupService(repo, store, cfg.CleanupInterval, cfg.OrphanGracePeriod)
	cleanup.Start(cleanupCtx)

	limiter, err := openLimiter(cfg)
	if err != nil {
		slog.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}
	defer limiter.Close()

	// Setup HTTP router
	e := api.SetupRouter(handler, tokens, limiter, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop cleanup service
	cleanupCancel()
	cleanup.Wait()

	slog.Info("server exited cleanly")
}

func openBackend(ctx context.Context, cfg *config.Config) (backend, func(), error) {
	if cfg.DatabaseURL == config.MemoryDatabase {
		slog.Warn("using in-memory database, data will not survive a restart")
		return database.NewMemoryStore(), func() {}, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database migrations complete")

	return pgBackend{Repository: database.NewRepository(db), DB: db}, db.Close, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageBackend == config.StorageMinio {
		store, err := storage.NewMinioStore(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.Bucket,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, err
		}
		slog.Info("object storage initialized", "endpoint", cfg.Minio.Endpoint, "bucket", cfg.Minio.Bucket)
		return store, nil
	}

	store := storage.NewFileSystemStore(cfg.StoragePath)
	if err := store.EnsureDir(); err != nil {
		return nil, err
	}
	slog.Info("file storage initialized", "path", cfg.StoragePath)
	return store, nil
}

func openLimiter(cfg *config.Config) (ratelimit.Limiter, error) {
	if cfg.RedisAddr != "" {
		l, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "olh:ratelimit", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			return nil, err
		}
		slog.Info("rate limiting via redis", "addr", cfg.RedisAddr, "per_minute", cfg.RateLimitPerMinute)
		return l, nil
	}
	return ratelimit.NewTokenBucket(cfg.RateLimitRPS, cfg.RateLimitBurst), nil
}
