// Package main provides the API server entry point for the NFT wallet reporter.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nft-wallet-report/internal/api"
	"github.com/nft-wallet-report/internal/app"
	"github.com/nft-wallet-report/internal/config"
	"github.com/nft-wallet-report/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if cfg.Ankr.APIKey == "" {
		logger.Warn("No Ankr API key configured; provider calls will likely be rejected")
	}

	application, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer application.Close()

	deps := api.Dependencies{
		Reports:  application.Reports,
		Commands: application.Commands,
		Provider: application.Fetcher,
		Logger:   logger,
	}
	if application.Throttle != nil {
		deps.Budget = application.Throttle
	}

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go server.PruneLimiters(ctx, time.Minute, 10*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started")

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server failed")
			application.Close()
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
	logger.Info("Server exited")
}
