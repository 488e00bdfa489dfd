package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/logging"
)

// Default throttle configuration values.
const (
	DefaultBaseDelay = 100 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Second
	DefaultMaxWait   = 30 * time.Second
)

// ErrContextCancelled is returned when the caller's context ends while waiting for budget.
var ErrContextCancelled = errors.New("context cancelled while waiting for budget")

// BudgetThrottle blocks provider calls until the shared credit budget admits them.
type BudgetThrottle struct {
	tracker   *CreditBudgetTracker
	costs     *CreditCostRegistry
	baseDelay time.Duration
	maxDelay  time.Duration
	maxWait   time.Duration
	logger    *logging.Logger

	mu               sync.Mutex
	currentDelay     time.Duration
	consecutiveFails int
}

// BudgetThrottleConfig holds configuration for the throttle.
type BudgetThrottleConfig struct {
	Tracker   *CreditBudgetTracker // required
	Costs     *CreditCostRegistry  // optional; defaults to the built-in costs
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// MaxWait bounds the total time spent in WaitForBudget. Default: 30s.
	MaxWait time.Duration
	Logger  *logging.Logger
}

// Validate checks if the configuration is valid.
func (c *BudgetThrottleConfig) Validate() error {
	if c.Tracker == nil {
		return errors.New("tracker is required")
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 || c.MaxWait < 0 {
		return errors.New("delays cannot be negative")
	}
	if c.MaxDelay > 0 && c.BaseDelay > c.MaxDelay {
		return errors.New("base delay cannot exceed max delay")
	}
	return nil
}

// NewBudgetThrottle creates a throttle with the given configuration.
func NewBudgetThrottle(cfg *BudgetThrottleConfig) (*BudgetThrottle, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	th := &BudgetThrottle{
		tracker:   cfg.Tracker,
		costs:     cfg.Costs,
		baseDelay: cfg.BaseDelay,
		maxDelay:  cfg.MaxDelay,
		maxWait:   cfg.MaxWait,
		logger:    cfg.Logger,
	}
	if th.costs == nil {
		th.costs = NewCreditCostRegistry(0, nil)
	}
	if th.baseDelay == 0 {
		th.baseDelay = DefaultBaseDelay
	}
	if th.maxDelay == 0 {
		th.maxDelay = DefaultMaxDelay
	}
	if th.maxWait == 0 {
		th.maxWait = DefaultMaxWait
	}
	if th.logger == nil {
		th.logger = logging.GetGlobalLogger()
	}
	th.logger = th.logger.WithComponent("budget_throttle")
	th.currentDelay = th.baseDelay
	return th, nil
}

// WaitForBudget blocks until the cost of method fits in the shared budget.
// It fails with a budget-exhausted error after MaxWait, with the tracker's
// error if Redis is unreachable, and with ErrContextCancelled if ctx ends.
func (th *BudgetThrottle) WaitForBudget(ctx context.Context, method string) error {
	credits := th.costs.GetCost(method)
	if credits <= 0 {
		return nil
	}

	deadline := time.Now().Add(th.maxWait)
	started := time.Now()
	throttled := false

	for {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}

		allowed, wait, err := th.tracker.TryConsume(ctx, credits)
		if err != nil {
			return apperrors.NewBudgetExhaustedError(method, err)
		}
		if allowed {
			th.recordSuccess()
			if throttled {
				if err := th.tracker.RecordThrottle(ctx, time.Since(started)); err != nil {
					th.logger.WithError(err).Debug("Failed to record throttle stats")
				}
			}
			if err := th.tracker.RecordMethodUsage(ctx, method, credits); err != nil {
				th.logger.WithError(err).Debug("Failed to record method usage")
			}
			return nil
		}

		throttled = true
		delay := th.recordFailure()
		if wait > delay {
			delay = wait
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			th.logger.WithFields(map[string]interface{}{
				"method":  method,
				"credits": credits,
				"waited":  time.Since(started).String(),
			}).Warn("Provider credit budget did not free up in time")
			return apperrors.NewBudgetExhaustedError(method, nil)
		}
		if delay > remaining {
			delay = remaining
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrContextCancelled
		case <-timer.C:
		}
	}
}

func (th *BudgetThrottle) recordSuccess() {
	th.mu.Lock()
	th.consecutiveFails = 0
	th.currentDelay = th.baseDelay
	th.mu.Unlock()
}

// recordFailure doubles the backoff up to maxDelay and returns the new delay.
func (th *BudgetThrottle) recordFailure() time.Duration {
	th.mu.Lock()
	defer th.mu.Unlock()

	th.consecutiveFails++
	next := th.currentDelay * 2
	if next > th.maxDelay {
		next = th.maxDelay
	}
	th.currentDelay = next
	return next
}

// CurrentDelay returns the current backoff delay.
func (th *BudgetThrottle) CurrentDelay() time.Duration {
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.currentDelay
}

// Usage exposes the tracker's window usage for the health endpoint.
func (th *BudgetThrottle) Usage(ctx context.Context) (*UsageStats, error) {
	return th.tracker.GetUsage(ctx)
}
