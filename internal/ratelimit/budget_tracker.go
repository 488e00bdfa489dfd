// Package ratelimit keeps every reporter instance inside the NFT data
// provider's shared credit budget. Consumption is tracked in Redis so that
// several API servers and CLI runs draw from one pool.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultCreditsPerWindow = 1500
	DefaultWindowSize       = time.Second
	DefaultKeyTTL           = 2 * time.Second
)

// Redis key prefixes for credit tracking.
const (
	KeyPrefixCredits  = "nftreport:credits:"
	KeyPrefixMethod   = "nftreport:credits:method:"
	KeyPrefixThrottle = "nftreport:throttle:"
)

// consumeScript atomically checks and increments the window counter.
// Returns {allowed, usedAfter}.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local credits = tonumber(ARGV[1])
	local budget = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + credits > budget then
		return {0, used}
	end

	redis.call('INCRBY', key, credits)
	redis.call('EXPIRE', key, ttl)
	return {1, used + credits}
`)

// CreditBudgetTracker implements a fixed-window credit counter in Redis.
type CreditBudgetTracker struct {
	redis      redis.Cmdable
	budget     int
	windowSize time.Duration
	keyTTL     time.Duration
	now        func() time.Time
}

// CreditBudgetTrackerConfig holds configuration for the budget tracker.
type CreditBudgetTrackerConfig struct {
	// Redis is required.
	Redis redis.Cmdable

	// CreditsPerWindow is the budget shared by all instances. Default: 1500.
	CreditsPerWindow int

	// WindowSize is the accounting window. Default: 1s.
	WindowSize time.Duration

	// KeyTTL must be at least WindowSize. Default: 2s.
	KeyTTL time.Duration

	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Validate checks if the configuration is valid.
func (c *CreditBudgetTrackerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.CreditsPerWindow < 0 {
		return errors.New("credits per window cannot be negative")
	}
	if c.WindowSize < 0 {
		return errors.New("window size cannot be negative")
	}
	if c.KeyTTL > 0 && c.WindowSize > 0 && c.KeyTTL < c.WindowSize {
		return fmt.Errorf("key TTL (%s) must not be shorter than the window (%s)", c.KeyTTL, c.WindowSize)
	}
	return nil
}

// UsageStats contains consumption for the current window.
type UsageStats struct {
	Used        int       `json:"used"`
	Budget      int       `json:"budget"`
	Remaining   int       `json:"remaining"`
	WindowStart time.Time `json:"windowStart"`
}

// NewCreditBudgetTracker creates a tracker with the given configuration.
func NewCreditBudgetTracker(cfg *CreditBudgetTrackerConfig) (*CreditBudgetTracker, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	t := &CreditBudgetTracker{
		redis:      cfg.Redis,
		budget:     cfg.CreditsPerWindow,
		windowSize: cfg.WindowSize,
		keyTTL:     cfg.KeyTTL,
		now:        cfg.Now,
	}
	if t.budget == 0 {
		t.budget = DefaultCreditsPerWindow
	}
	if t.windowSize == 0 {
		t.windowSize = DefaultWindowSize
	}
	if t.keyTTL == 0 {
		t.keyTTL = t.windowSize + time.Second
		if t.keyTTL < DefaultKeyTTL {
			t.keyTTL = DefaultKeyTTL
		}
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

func (t *CreditBudgetTracker) windowStart() time.Time {
	return t.now().Truncate(t.windowSize)
}

func (t *CreditBudgetTracker) windowKey(start time.Time) string {
	return KeyPrefixCredits + strconv.FormatInt(start.UnixMilli(), 10)
}

// TryConsume attempts to take credits from the current window. When the
// window is full it returns false with the time until the next window.
// A Redis failure is returned as an error and never counts as allowed.
func (t *CreditBudgetTracker) TryConsume(ctx context.Context, credits int) (bool, time.Duration, error) {
	if credits <= 0 {
		return true, 0, nil
	}
	if credits > t.budget {
		return false, 0, fmt.Errorf("request needs %d credits but the window budget is %d", credits, t.budget)
	}

	start := t.windowStart()
	ttlSeconds := int(t.keyTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	res, err := consumeScript.Run(ctx, t.redis, []string{t.windowKey(start)}, credits, t.budget, ttlSeconds).Int64Slice()
	if err != nil {
		return false, t.untilNextWindow(start), fmt.Errorf("credit budget check failed: %w", err)
	}
	if len(res) == 0 || res[0] != 1 {
		return false, t.untilNextWindow(start), nil
	}
	return true, 0, nil
}

func (t *CreditBudgetTracker) untilNextWindow(start time.Time) time.Duration {
	wait := start.Add(t.windowSize).Sub(t.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// GetUsage returns consumption for the current window.
func (t *CreditBudgetTracker) GetUsage(ctx context.Context) (*UsageStats, error) {
	start := t.windowStart()
	used, err := t.redis.Get(ctx, t.windowKey(start)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read credit usage: %w", err)
	}
	remaining := t.budget - used
	if remaining < 0 {
		remaining = 0
	}
	return &UsageStats{
		Used:        used,
		Budget:      t.budget,
		Remaining:   remaining,
		WindowStart: start,
	}, nil
}

// RecordMethodUsage adds credits to a per-method counter for the current window.
// It is informational and does not affect admission.
func (t *CreditBudgetTracker) RecordMethodUsage(ctx context.Context, method string, credits int) error {
	if credits <= 0 || method == "" {
		return nil
	}
	key := fmt.Sprintf("%s%s:%d", KeyPrefixMethod, method, t.windowStart().UnixMilli())

	pipe := t.redis.Pipeline()
	pipe.IncrBy(ctx, key, int64(credits))
	pipe.Expire(ctx, key, t.keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordThrottle counts a denied admission and the time spent waiting for it.
func (t *CreditBudgetTracker) RecordThrottle(ctx context.Context, waited time.Duration) error {
	pipe := t.redis.Pipeline()
	pipe.Incr(ctx, KeyPrefixThrottle+"count")
	pipe.IncrBy(ctx, KeyPrefixThrottle+"wait_ms", waited.Milliseconds())
	_, err := pipe.Exec(ctx)
	return err
}

// ThrottleStats returns the lifetime throttle counters.
func (t *CreditBudgetTracker) ThrottleStats(ctx context.Context) (count int64, waited time.Duration, err error) {
	vals, err := t.redis.MGet(ctx, KeyPrefixThrottle+"count", KeyPrefixThrottle+"wait_ms").Result()
	if err != nil {
		return 0, 0, err
	}
	parse := func(v interface{}) int64 {
		s, ok := v.(string)
		if !ok {
			return 0
		}
		n, _ := strconv.ParseInt(s, 10, 64)
		return n
	}
	return parse(vals[0]), time.Duration(parse(vals[1])) * time.Millisecond, nil
}

// Budget returns the configured credits per window.
func (t *CreditBudgetTracker) Budget() int {
	return t.budget
}

// WindowSize returns the configured window size.
func (t *CreditBudgetTracker) WindowSize() time.Duration {
	return t.windowSize
}
