// Package app assembles the report pipeline and its optional backends from
// configuration. The server and the CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/nft-wallet-report/internal/adapter"
	"github.com/nft-wallet-report/internal/circuitbreaker"
	"github.com/nft-wallet-report/internal/config"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/ratelimit"
	"github.com/nft-wallet-report/internal/service"
	"github.com/nft-wallet-report/internal/storage"
)

// App holds the wired components. Optional backends are nil when disabled.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Fetcher  *adapter.TransferFetcher
	Reports  *service.NFTReportService
	Commands *service.CommandService
	Throttle *ratelimit.BudgetThrottle

	Postgres   *storage.PostgresDB
	ClickHouse *storage.ClickHouseDB
	Redis      *storage.RedisStore

	closers []func()
}

// Options override pieces of the default wiring
type Options struct {
	HTTPClient adapter.HTTPDoer
	Random     service.RandomSource
	// SkipArchive disables the Postgres command archive even when configured
	SkipArchive bool
}

// New connects the configured backends and builds the services. A backend
// that is configured but unreachable is an error; one that is not
// configured is skipped.
func New(cfg *config.Config, logger *logging.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.connect(opts); err != nil {
		a.Close()
		return nil, err
	}

	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		Name:             adapter.ProviderAnkr,
		MaxFailures:      cfg.Breaker.MaxFailures,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Timeout:          cfg.Breaker.OpenTimeout,
		HalfOpenMaxCalls: 1,
		Logger:           logger,
	})

	fetcherCfg := adapter.TransferFetcherConfig{
		Client:      adapter.NewAnkrClient(cfg.Ankr, opts.HTTPClient),
		Breaker:     breaker,
		MaxAttempts: cfg.Ankr.MaxAttempts,
		Logger:      logger,
	}
	if a.Throttle != nil {
		fetcherCfg.Throttle = a.Throttle
	}
	fetcher, err := adapter.NewTransferFetcher(fetcherCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create transfer fetcher: %w", err)
	}
	a.Fetcher = fetcher

	reportCfg := service.NFTReportServiceConfig{
		Fetcher:  fetcher,
		Renderer: service.NewReportRenderer(opts.Random),
		Logger:   logger,
	}
	if a.ClickHouse != nil && cfg.Archive.ReportStats {
		reportCfg.Stats = storage.NewReportStatsRepository(a.ClickHouse)
	}
	a.Reports = service.NewNFTReportService(reportCfg)

	var archive service.CommandArchive
	if a.Postgres != nil && cfg.Archive.Commands && !opts.SkipArchive {
		archive = storage.NewCommandRepository(a.Postgres)
	}
	a.Commands = service.NewCommandService(a.Reports, archive, logger)

	return a, nil
}

func (a *App) connect(opts Options) error {
	cfg := a.Config

	if cfg.Database.Redis.Enabled() && cfg.Budget.Enabled {
		redisStore, err := storage.NewRedisStore(&cfg.Database.Redis)
		if err != nil {
			return err
		}
		a.Redis = redisStore
		a.closers = append(a.closers, func() { _ = redisStore.Close() })

		tracker, err := ratelimit.NewCreditBudgetTracker(&ratelimit.CreditBudgetTrackerConfig{
			Redis:            redisStore.Client(),
			CreditsPerWindow: cfg.Budget.CreditsPerWindow,
			WindowSize:       cfg.Budget.Window,
		})
		if err != nil {
			return fmt.Errorf("failed to create budget tracker: %w", err)
		}
		a.Throttle, err = ratelimit.NewBudgetThrottle(&ratelimit.BudgetThrottleConfig{
			Tracker: tracker,
			Costs:   ratelimit.NewCreditCostRegistry(0, cfg.Budget.MethodCosts),
			MaxWait: cfg.Budget.MaxWait,
			Logger:  a.Logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create budget throttle: %w", err)
		}
		a.Logger.WithField("credits_per_window", tracker.Budget()).Info("Provider credit budget enabled")
	}

	if cfg.Database.Postgres.Enabled() && cfg.Archive.Commands && !opts.SkipArchive {
		pg, err := storage.NewPostgresDB(&cfg.Database.Postgres)
		if err != nil {
			return err
		}
		a.Postgres = pg
		a.closers = append(a.closers, pg.Close)
		a.Logger.Info("Command archive enabled")
	}

	if cfg.Database.ClickHouse.Enabled() && cfg.Archive.ReportStats {
		ch, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			return err
		}
		a.ClickHouse = ch
		a.closers = append(a.closers, func() { _ = ch.Close() })
		a.Logger.Info("Report statistics enabled")
	}

	return nil
}

// BudgetUsage reports credit usage, or nil when the budget is disabled
func (a *App) BudgetUsage(ctx context.Context) (*ratelimit.UsageStats, error) {
	if a.Throttle == nil {
		return nil, nil
	}
	return a.Throttle.Usage(ctx)
}

// Close releases every backend connection in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
