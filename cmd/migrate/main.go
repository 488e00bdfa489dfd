// Package main provides a CLI tool for running database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nft-wallet-report/internal/config"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse")
		dir    = flag.String("dir", "migrations", "Root directory holding postgres/ and clickhouse/ migrations")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithFields(map[string]interface{}{
		"db":     *dbType,
		"action": *action,
	})

	switch *dbType {
	case "postgres":
		err = runPostgresMigrations(cfg, *dir+"/postgres", *action, logger)
	case "clickhouse":
		err = runClickHouseMigrations(cfg, *dir+"/clickhouse", *action, logger)
	default:
		err = fmt.Errorf("unknown database type: %s", *dbType)
	}
	if err != nil {
		logger.WithError(err).Fatal("Migration failed")
	}
}

func runPostgresMigrations(cfg *config.Config, path, action string, logger *logging.Logger) error {
	if !cfg.Database.Postgres.Enabled() {
		return fmt.Errorf("POSTGRES_HOST is not set")
	}

	mg, err := storage.NewMigrator(cfg.Database.Postgres.URL(), path)
	if err != nil {
		return err
	}
	defer func() {
		if err := mg.Close(); err != nil {
			logger.WithError(err).Warn("Error closing migrator")
		}
	}()

	switch action {
	case "up":
		if err := mg.Up(); err != nil {
			return err
		}
		logger.Info("Postgres migrations applied")
	case "down":
		if err := mg.Down(); err != nil {
			return err
		}
		logger.Info("Postgres migration rolled back")
	case "version":
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{"version": version, "dirty": dirty}).Info("Current Postgres migration version")
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
	return nil
}

func runClickHouseMigrations(cfg *config.Config, path, action string, logger *logging.Logger) error {
	if action != "up" {
		return fmt.Errorf("ClickHouse migrations only support 'up' action")
	}
	if !cfg.Database.ClickHouse.Enabled() {
		return fmt.Errorf("CLICKHOUSE_HOST is not set")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("migrations directory not found: %s", path)
	}

	db, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("Error closing ClickHouse connection")
		}
	}()

	if err := storage.RunClickHouseMigrations(context.Background(), db, path, logger); err != nil {
		return err
	}
	logger.Info("ClickHouse migrations applied")
	return nil
}
