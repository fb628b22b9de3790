// FileCrate Server
//
// Features:
// - Per-resource sandboxed file storage on the local filesystem
// - Prometheus metrics & structured logging (zap)
// - File upload/create/delete endpoints with collision-safe naming
// - Trash lifecycle (soft delete + restore)
// - Year/category photo gallery projection
// - SSE real-time change notifications
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/filecrate/filecrate/internal/api"
	"github.com/filecrate/filecrate/internal/config"
	"github.com/filecrate/filecrate/internal/events"
	"github.com/filecrate/filecrate/internal/gallery"
	"github.com/filecrate/filecrate/internal/icons"
	"github.com/filecrate/filecrate/internal/logging"
	"github.com/filecrate/filecrate/internal/metrics"
	"github.com/filecrate/filecrate/internal/ratelimit"
	"github.com/filecrate/filecrate/internal/vfs"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	// Initialize structured logging
	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("FileCrate Server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr),
		zap.String("storage", cfg.StoragePath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load icon set (defaults plus optional YAML overlay)
	iconSet := icons.Defaults()
	if cfg.IconsFile != "" {
		loaded, err := icons.Load(cfg.IconsFile)
		if err != nil {
			logging.Fatal("icons file load failed",
				zap.String("file", cfg.IconsFile),
				zap.Error(err))
		}
		iconSet = loaded
		logging.Info("icons loaded", zap.String("file", cfg.IconsFile))
	}

	// Initialize the file store
	store, err := vfs.New(cfg.StoragePath, iconSet, cfg.MaxUploadSize)
	if err != nil {
		logging.Fatal("store init failed", zap.Error(err))
	}
	logging.Info("file store initialized",
		zap.String("path", cfg.StoragePath),
		zap.Int64("maxUploadSize", cfg.MaxUploadSize))

	// Initialize SSE broadcaster
	broadcaster := events.NewBroadcaster()
	logging.Info("SSE broadcaster initialized")

	// Initialize rate limiter
	rateLimiter := ratelimit.New()

	// Initialize gallery service
	galleryService := gallery.New(store)

	// Create API server
	srv := api.NewServer(store, galleryService, broadcaster, rateLimiter, cfg)

	// Start metrics server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()
		httpServer.Close()
		metricsServer.Close()
	}()

	// Start periodic rate limiter bucket cleanup
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.Cleanup(24 * time.Hour)
			}
		}
	}()

	logging.Info("server listening", zap.String("addr", cfg.ListenAddr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("server error", zap.Error(err))
	}
}
