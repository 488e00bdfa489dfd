package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nft-wallet-report/internal/circuitbreaker"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/retry"
	"github.com/nft-wallet-report/internal/types"
)

// Throttle admits provider calls against a shared credit budget
type Throttle interface {
	WaitForBudget(ctx context.Context, method string) error
}

// FetchResult is the detailed outcome of a full pagination run
type FetchResult struct {
	Records []types.TransferRecord
	// Pages counts successful page responses, including the final one
	Pages int
	// Failed is true when a transport failure discarded the accumulated records
	Failed bool
	// Err is the transport failure, if any
	Err error
	// StopReason describes why the loop ended
	StopReason string
	// InvalidTimestamps counts records kept without a timestamp because the
	// provider value could not be parsed
	InvalidTimestamps int
}

// Stop reasons recorded on FetchResult
const (
	StopLastPage       = "last_page"
	StopEndOfData      = "end_of_data"
	StopDuplicateToken = "duplicate_token"
	StopTransportError = "transport_error"
)

// TransferFetcherConfig holds the fetcher's collaborators
type TransferFetcherConfig struct {
	Client *AnkrClient // required
	// Breaker guards provider calls; nil disables circuit breaking
	Breaker *circuitbreaker.CircuitBreaker
	// Throttle paces calls against the credit budget; nil disables pacing
	Throttle Throttle
	// MaxAttempts per page; values below 1 mean a single attempt
	MaxAttempts int
	// RetryDelay is the initial backoff between attempts
	RetryDelay time.Duration
	Logger     *logging.Logger
}

// TransferFetcher drives ankr_getNftTransfers pagination for one wallet
type TransferFetcher struct {
	client   *AnkrClient
	breaker  *circuitbreaker.CircuitBreaker
	throttle Throttle
	retryCfg *retry.RetryConfig
	logger   *logging.Logger
}

// NewTransferFetcher creates a fetcher
func NewTransferFetcher(cfg TransferFetcherConfig) (*TransferFetcher, error) {
	if cfg.Client == nil {
		return nil, errors.New("ankr client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	retryCfg := retry.DefaultRetryConfig()
	if cfg.MaxAttempts > 1 {
		retryCfg.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryDelay > 0 {
		retryCfg.InitialDelay = cfg.RetryDelay
	}
	retryCfg.Retryable = IsRetryableProviderError

	return &TransferFetcher{
		client:   cfg.Client,
		breaker:  cfg.Breaker,
		throttle: cfg.Throttle,
		retryCfg: retryCfg,
		logger:   logger.WithComponent("transfer_fetcher"),
	}, nil
}

// FetchAllTransfers returns every transfer record for address across all
// pages, in provider order. Any transport failure yields an empty slice.
func (f *TransferFetcher) FetchAllTransfers(ctx context.Context, address string) []types.TransferRecord {
	return f.FetchAllTransfersDetailed(ctx, address).Records
}

// FetchAllTransfersDetailed runs the same pagination as FetchAllTransfers and
// also reports how it ended.
func (f *TransferFetcher) FetchAllTransfersDetailed(ctx context.Context, address string) *FetchResult {
	logger := logging.FromContextOr(ctx, f.logger).WithField(logging.FieldAddress, address)

	result := &FetchResult{}
	var records []types.TransferRecord
	seen := make(map[string]struct{})
	token := ""

	for {
		page := f.fetchPage(ctx, address, token)

		switch p := page.(type) {
		case PageTransportError:
			logger.WithFields(map[string]interface{}{
				"page":  result.Pages + 1,
				"error": p.Err.Error(),
			}).Error("Error fetching NFT transfers, discarding partial results")
			result.Failed = true
			result.Err = p.Err
			result.StopReason = StopTransportError
			result.Records = []types.TransferRecord{}
			return result

		case PageEndOfData:
			entry := logger.WithField("pages", result.Pages)
			if p.RPCError != nil {
				entry.WithField("rpcError", p.RPCError.Error()).Warn("Provider returned an error envelope, stopping pagination")
			} else {
				entry.Debug("Response carried no transfers envelope, stopping pagination")
			}
			result.StopReason = StopEndOfData
			result.Records = nonNil(records)
			return result

		case PageOK:
			result.Pages++
			records = append(records, p.Transfers...)
			if p.InvalidTimestamps > 0 {
				result.InvalidTimestamps += p.InvalidTimestamps
				logger.WithFields(map[string]interface{}{
					"page":    result.Pages,
					"records": p.InvalidTimestamps,
				}).Warn("Unparseable transfer timestamps treated as absent")
			}
			logger.WithFields(map[string]interface{}{
				"page":      result.Pages,
				"transfers": len(p.Transfers),
				"total":     len(records),
			}).Debug("Fetched NFT transfer page")

			if p.NextToken == "" {
				result.StopReason = StopLastPage
				result.Records = nonNil(records)
				return result
			}
			if _, dup := seen[p.NextToken]; dup {
				logger.WithFields(map[string]interface{}{
					"pageToken": p.NextToken,
					"pages":     result.Pages,
				}).Warn("Provider repeated a page token, stopping pagination")
				result.StopReason = StopDuplicateToken
				result.Records = nonNil(records)
				return result
			}
			seen[p.NextToken] = struct{}{}
			token = p.NextToken

		default:
			result.Failed = true
			result.Err = fmt.Errorf("unexpected page result %T", page)
			result.StopReason = StopTransportError
			result.Records = []types.TransferRecord{}
			return result
		}
	}
}

// fetchPage performs one logical page request: budget admission, circuit
// breaker, and up to MaxAttempts provider calls.
func (f *TransferFetcher) fetchPage(ctx context.Context, address, token string) PageResult {
	var page PageResult

	outcome := retry.WithExponentialBackoff(ctx, f.retryCfg, func(ctx context.Context, attempt int) error {
		if f.throttle != nil {
			if err := f.throttle.WaitForBudget(ctx, MethodGetNFTTransfers); err != nil {
				return NewAdapterError(ProviderAnkr, "budget", err, nil)
			}
		}

		call := func(ctx context.Context) error {
			page = f.client.GetNFTTransfersPage(ctx, address, token)
			if te, ok := page.(PageTransportError); ok {
				return te.Err
			}
			return nil
		}

		if f.breaker == nil {
			return call(ctx)
		}
		if err := f.breaker.Execute(ctx, call); err != nil {
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
				return NewAdapterError(ProviderAnkr, "circuit", err, nil)
			}
			return err
		}
		return nil
	})

	if !outcome.Success {
		return PageTransportError{Err: outcome.Err()}
	}
	return page
}

// Health returns the provider health snapshot
func (f *TransferFetcher) Health() *ProviderHealth {
	return f.client.Health().GetHealth()
}

// BreakerStats returns the circuit breaker snapshot, or nil when disabled
func (f *TransferFetcher) BreakerStats() *circuitbreaker.Stats {
	if f.breaker == nil {
		return nil
	}
	return f.breaker.GetStats()
}

func nonNil(records []types.TransferRecord) []types.TransferRecord {
	if records == nil {
		return []types.TransferRecord{}
	}
	return records
}
