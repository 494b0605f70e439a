package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/itemmanager/internal/catalog"
	"github.com/gravitas-games/itemmanager/internal/config"
	"github.com/gravitas-games/itemmanager/internal/logger"
	"github.com/gravitas-games/itemmanager/internal/server"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/server.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg)
	log.Info("Starting item server", "config", configPath, "environment", cfg.Logging.Environment)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Error("Failed to load item catalog", "path", cfg.Catalog.Path, "error", err)
		os.Exit(1)
	}
	log.Info("Item catalog loaded", "path", cfg.Catalog.Path, "items", len(cat.Items), "pickups", len(cat.Pickups))

	// Create and initialize server
	srv, err := server.New(cfg, cat, log)
	if err != nil {
		log.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Address()); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("Server error", "error", err)
		srv.Shutdown()
		os.Exit(1)
	case sig := <-sigChan:
		log.Info("Received signal, shutting down...", "signal", sig.String())
	}

	// Graceful shutdown
	if err := srv.Shutdown(); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Server stopped")
}
