// Command spender-migrate applies the schema migrations for the configured
// backend and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spender/internal/backend"
	"spender/internal/cli"
	"spender/internal/config"
	"spender/internal/log"
	"spender/internal/storage"
	"spender/internal/storage/postgres"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentMigrate)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := migrate(ctx, cfg, logger); err != nil {
		logger.Error("Migration failed", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if err := backendCfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch backendCfg.Type {
	case backend.SQLiteBackend:
		if err := os.MkdirAll(filepath.Dir(backendCfg.SQLiteDBPath), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
		if err := storage.RunMigrations(backendCfg.SQLiteDBPath); err != nil {
			return err
		}
		logger.Info("SQLite schema is up to date", "db_path", backendCfg.SQLiteDBPath)
	case backend.PostgresBackend:
		if err := postgres.RunMigrations(backendCfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("Postgres schema is up to date")
	default:
		logger.Info("Nothing to migrate", "backend", backendCfg.Type.String())
	}
	return nil
}
