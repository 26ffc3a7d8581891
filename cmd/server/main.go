package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fshasan/feedback-pulse/internal/analysis"
	"github.com/fshasan/feedback-pulse/internal/api"
	"github.com/fshasan/feedback-pulse/internal/archive"
	"github.com/fshasan/feedback-pulse/internal/cache"
	"github.com/fshasan/feedback-pulse/internal/config"
	"github.com/fshasan/feedback-pulse/internal/fixtures"
	"github.com/fshasan/feedback-pulse/internal/llm"
	"github.com/fshasan/feedback-pulse/internal/notifications"
	"github.com/fshasan/feedback-pulse/internal/scheduler"
	"github.com/fshasan/feedback-pulse/internal/storage"
	"github.com/fshasan/feedback-pulse/internal/triage"
)

// analysisCache is what the server needs from a cache backend
type analysisCache interface {
	cache.AnalysisCache
	cache.SeenSet
}

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting feedback-pulse")

	ctx := context.Background()

	client, err := llm.NewClient(llm.Config{
		Provider:  cfg.AIProvider,
		APIKey:    cfg.AIAPIKey,
		BaseURL:   cfg.AIBaseURL,
		AccountID: cfg.AIAccountID,
		Models:    llm.Models{Primary: cfg.AIModelPrimary, Fast: cfg.AIModelFast},
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize AI client: %v", err)
	}
	if client == nil {
		logrus.Info("No AI provider configured, using local analysis only")
	} else {
		logrus.Infof("Using %s AI provider (%s / %s)", client.Name(), cfg.AIModelPrimary, cfg.AIModelFast)
	}

	analyses := newCache(ctx, cfg)
	if closer, ok := analyses.(interface{ Close() }); ok {
		defer closer.Close()
	}

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer repo.Close()

	if cfg.SeedMockData {
		if _, err := fixtures.Seed(ctx, repo, time.Now().UTC()); err != nil {
			logrus.Errorf("Failed to seed sample feedback: %v", err)
		}
	}

	reports, err := newArchive(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize report archive: %v", err)
	}

	validator := analysis.NewValidator(client, cfg.AITimeout)
	analyzer := analysis.NewAnalyzer(client, analyses, cfg.AITimeout)
	explainer := analysis.NewExplainer(client, cfg.AITimeout)

	// Initialize notification services
	notificationService := notifications.NewService(cfg)

	// Initialize triage service
	triageService := triage.NewService(cfg, repo, analyzer, analyses, notificationService, reports)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, triageService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := api.NewServer(cfg, repo, validator, analyzer, explainer, triageService).NewHTTPServer()

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newCache(ctx context.Context, cfg *config.Config) analysisCache {
	if cfg.CacheAddress == "" {
		return cache.NewMemoryCache(cfg.CacheTTL)
	}

	valkeyCache, err := cache.NewValkeyCache(ctx, cfg.CacheAddress, cfg.CachePassword, cfg.CacheTLS, cfg.CacheTTL)
	if err != nil {
		logrus.Warnf("Failed to connect to cache at %s, using in-memory cache: %v", cfg.CacheAddress, err)
		return cache.NewMemoryCache(cfg.CacheTTL)
	}

	logrus.Infof("Using Valkey cache at %s", cfg.CacheAddress)
	return valkeyCache
}

func newRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		logrus.Infof("Using SQLite storage at %s", cfg.DatabasePath)
		return storage.NewSQLite(cfg.DatabasePath)
	case "postgres":
		logrus.Info("Using PostgreSQL storage")
		return storage.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		logrus.Info("Using in-memory storage")
		return storage.NewMemoryRepository(), nil
	}
}

func newArchive(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	switch cfg.ArchiveBackend {
	case "file":
		return archive.NewFileStorage(cfg.ArchiveDir)
	case "azure":
		return archive.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	default:
		return nil, nil
	}
}
