// Package api exposes the NFT report pipeline and the chat command
// transport over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nft-wallet-report/internal/adapter"
	"github.com/nft-wallet-report/internal/circuitbreaker"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/models"
	"github.com/nft-wallet-report/internal/ratelimit"
	"github.com/nft-wallet-report/internal/service"
)

// ReportServiceInterface generates NFT wallet reports
type ReportServiceInterface interface {
	GenerateReport(ctx context.Context, address string) *service.ReportOutcome
}

// CommandServiceInterface handles chat commands and lists archived messages
type CommandServiceInterface interface {
	Handle(ctx context.Context, in service.IncomingCommand) *service.CommandReply
	History(ctx context.Context, chatID int64, limit int) ([]*models.CommandRecord, error)
}

// ProviderStatus reports the health of the transfer provider
type ProviderStatus interface {
	Health() *adapter.ProviderHealth
	BreakerStats() *circuitbreaker.Stats
}

// BudgetStatus reports provider credit usage
type BudgetStatus interface {
	Usage(ctx context.Context) (*ratelimit.UsageStats, error)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestsPerSecond int
	Burst             int
}

// Dependencies are the services the server routes to. Provider and Budget
// are optional and only feed /health.
type Dependencies struct {
	Reports  ReportServiceInterface
	Commands CommandServiceInterface
	Provider ProviderStatus
	Budget   BudgetStatus
	Logger   *logging.Logger
}

// Server represents the HTTP API server.
type Server struct {
	router      *mux.Router
	httpServer  *http.Server
	reports     ReportServiceInterface
	commands    CommandServiceInterface
	provider    ProviderStatus
	budget      BudgetStatus
	rateLimiter *RateLimiter
	logger      *logging.Logger
	config      *ServerConfig
	started     time.Time
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router:      mux.NewRouter(),
		reports:     deps.Reports,
		commands:    deps.Commands,
		provider:    deps.Provider,
		budget:      deps.Budget,
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		logger:      logger.WithComponent("api"),
		config:      config,
		started:     time.Now(),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(s.rateLimiter))
	api.HandleFunc("/wallets/{address}/nft-report", s.handleNFTReport).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/commands", s.handleCommand).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/chats/{chatId}/commands", s.handleCommandHistory).Methods(http.MethodGet, http.MethodOptions)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:           s.router,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// PruneLimiters runs until ctx ends, dropping idle per-client limiters
func (s *Server) PruneLimiters(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Prune(maxIdle); n > 0 {
				s.logger.WithField("removed", n).Debug("Pruned idle rate limiters")
			}
		}
	}
}
