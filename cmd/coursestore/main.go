package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sncop/coursestore/internal/logger"
	"github.com/sncop/coursestore/internal/server"
	"github.com/sncop/coursestore/internal/storage"
	"github.com/sncop/coursestore/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: XDG config dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("coursestore - academic file storage service")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Storage root: %s", cfg.Storage.Root)

	layout, err := storage.NewLayout(cfg.Storage.Root)
	if err != nil {
		log.Fatalf("Failed to prepare storage root: %v", err)
	}

	meta, err := config.CreateMetadataStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open metadata store: %v", err)
	}
	defer func() {
		if err := meta.Close(); err != nil {
			logger.Error("Failed to close metadata store: %v", err)
		}
	}()

	catalog := storage.NewCatalog(layout, meta)
	if err := catalog.Load(ctx); err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	logger.Info("Loaded metadata for %d files", catalog.MetaCount())

	if err := catalog.Reconcile(ctx); err != nil {
		log.Fatalf("Failed to reconcile catalog: %v", err)
	}

	profiles, err := server.NewProfileStore(cfg.Storage.ProfilePicturesDir)
	if err != nil {
		log.Fatalf("Failed to prepare profile pictures dir: %v", err)
	}

	// Background temp sweep
	janitor := storage.NewJanitor(layout, cfg.Storage.TempSweepInterval, cfg.Storage.TempMaxAge)
	go janitor.Run(ctx)

	logger.Info("Server configuration:")
	logger.Info("  Listen address: %s", cfg.Server.ListenAddress)
	logger.Info("  Read timeout: %v", cfg.Server.ReadTimeout)
	logger.Info("  Write timeout: %v", cfg.Server.WriteTimeout)
	logger.Info("  Idle timeout: %v", cfg.Server.IdleTimeout)
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	logger.Info("  Max upload size: %d bytes", cfg.Server.MaxUploadBytes)

	srv := server.New(cfg.Server, catalog, layout, profiles)

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", cfg.Server.ListenAddress)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	}
}
