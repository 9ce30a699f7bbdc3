// Package main is the entry point for the messenger auth server.
//
// main stays minimal:
//  1. Read configuration (environment, once)
//  2. Build the logger
//  3. Create and start the server
//
// Everything else lives under internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/messenger-auth/internal/config"
	"github.com/sakif/messenger-auth/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// A bootstrap logger covers errors before LOG_LEVEL is known.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Validate already checked the level, so the error can't happen here.
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`: a no-op when the directory already exists.
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
