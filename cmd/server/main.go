package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/streamvault/internal/api"
	"github.com/iconidentify/streamvault/internal/api/handler"
	"github.com/iconidentify/streamvault/internal/cache"
	"github.com/iconidentify/streamvault/internal/catalog"
	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/resolver"
	"github.com/iconidentify/streamvault/internal/service"
	"github.com/iconidentify/streamvault/internal/upstream"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("streamvault %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamvault",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load catalog
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	videos, err := catalog.Load(loadCtx, cfg.Catalog)
	cancelLoad()
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "entries", videos.Len())

	// Initialize dependencies
	client := upstream.NewClient(cfg.Upstream, cfg.Stream, logger)
	res := resolver.New(client, client, cfg.Upstream, logger)
	resolutions := cache.New(res, cfg.Cache, logger)
	resolutions.StartSweeper(cfg.Cache.SweepInterval)

	// Initialize services
	streamSvc := service.NewStreamService(videos, resolutions, client, logger)

	// Initialize handlers
	catalogHandler := handler.NewCatalogHandler(videos)
	streamHandler := handler.NewStreamHandler(streamSvc, logger)
	embedHandler := handler.NewEmbedHandler(videos, cfg.Upstream, logger)
	healthHandler := handler.NewHealthHandler(videos, resolutions)
	uiHandler := handler.NewUIHandler()

	// Setup router
	router := api.NewRouter(catalogHandler, streamHandler, embedHandler, healthHandler, uiHandler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting new requests; open streams are cut at the deadline
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		srv.Close()
	}

	if err := resolutions.Stop(5 * time.Second); err != nil {
		logger.Error("cache sweeper shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
