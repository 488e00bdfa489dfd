package api

import (
	"net/http"
	"time"

	"github.com/nft-wallet-report/internal/adapter"
	"github.com/nft-wallet-report/internal/circuitbreaker"
	"github.com/nft-wallet-report/internal/ratelimit"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string                  `json:"status"`
	Service  string                  `json:"service"`
	Uptime   string                  `json:"uptime"`
	Provider *adapter.ProviderHealth `json:"provider,omitempty"`
	Breaker  *circuitbreaker.Stats   `json:"circuitBreaker,omitempty"`
	Budget   *ratelimit.UsageStats   `json:"budget,omitempty"`
	Warnings []string                `json:"warnings,omitempty"`
}

// handleHealth reports "degraded" when the provider looks unhealthy or the
// breaker is open. The status code stays 200 so the process is not restarted
// for an upstream outage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: "nft-wallet-report",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}

	if s.provider != nil {
		resp.Provider = s.provider.Health()
		resp.Breaker = s.provider.BreakerStats()
		if resp.Provider != nil && !resp.Provider.IsHealthy {
			resp.Status = "degraded"
		}
		if resp.Breaker != nil && resp.Breaker.State == circuitbreaker.StateOpen {
			resp.Status = "degraded"
		}
	}

	if s.budget != nil {
		usage, err := s.budget.Usage(r.Context())
		if err != nil {
			resp.Warnings = append(resp.Warnings, "budget usage unavailable: "+err.Error())
		} else {
			resp.Budget = usage
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
