// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// ubl-core runs the ledger engine behind the JSON/HTTP transport: it
// loads configuration, opens the configured storage backend, seeds any
// genesis pacts, and serves until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/danvoulez/UBL-Containers/internal/config"
	"github.com/danvoulez/UBL-Containers/internal/ledger"
	"github.com/danvoulez/UBL-Containers/internal/pact"
	"github.com/danvoulez/UBL-Containers/internal/seed"
	"github.com/danvoulez/UBL-Containers/internal/storage"
	"github.com/danvoulez/UBL-Containers/internal/storage/memstore"
	"github.com/danvoulez/UBL-Containers/internal/storage/sqlitestore"
	"github.com/danvoulez/UBL-Containers/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ubl-core: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flagSet := pflag.NewFlagSet("ubl-core", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config YAML (default: $UBL_CONFIG, or in-memory defaults)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer closeStore()

	pacts := pact.NewRegistry()
	if cfg.GenesisSeedPath != "" {
		doc, err := seed.ReadFile(cfg.GenesisSeedPath)
		if err != nil {
			return fmt.Errorf("loading genesis seed: %w", err)
		}
		if err := seed.Register(pacts, doc); err != nil {
			return fmt.Errorf("registering genesis seed: %w", err)
		}
		logger.Info("genesis seed loaded", "path", cfg.GenesisSeedPath, "pact_count", len(doc.Pacts))
	}

	engine := ledger.New(store, pacts, nil)
	server := transport.New(transport.Config{
		Address:     cfg.ListenAddress(),
		Engine:      engine,
		Logger:      logger,
		ContainerID: cfg.ContainerID,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return server.Serve(ctx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func openStore(cfg config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	driver, path, err := cfg.StorageBackend()
	if err != nil {
		return nil, nil, err
	}
	switch driver {
	case "sqlite":
		store, err := sqlitestore.Open(sqlitestore.Config{
			Path:     path,
			PoolSize: cfg.StoragePoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return memstore.New(), func() {}, nil
	}
}
