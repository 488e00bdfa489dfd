package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nft-wallet-report/internal/adapter"
	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/models"
	"github.com/nft-wallet-report/internal/types"
)

// User-facing messages for the non-success outcomes
const (
	NoDataMessageFormat = "No NFT transfer data found for wallet %s."
	ErrorMessage        = "An error occurred while generating the report. Please try again later."

	statsWriteTimeout = 5 * time.Second
)

// TransferSource fetches every NFT transfer for a wallet
type TransferSource interface {
	FetchAllTransfersDetailed(ctx context.Context, address string) *adapter.FetchResult
}

// ReportStatsSink receives a summary row after each successful report
type ReportStatsSink interface {
	InsertReportStat(ctx context.Context, stat *models.ReportStat) error
}

// ReportOutcome is the result of one report invocation. Kind and Text are
// what the requester sees; the other fields are diagnostics.
type ReportOutcome struct {
	RequestID   string                      `json:"requestId"`
	Address     string                      `json:"address"`
	Checksum    string                      `json:"checksumAddress"`
	Kind        types.ReportOutcomeKind     `json:"outcome"`
	Text        string                      `json:"text"`
	Aggregate   *types.AggregateResult      `json:"stats,omitempty"`
	Labels      *types.ClassificationResult `json:"labels,omitempty"`
	Pages       int                         `json:"pages"`
	FetchFailed bool                        `json:"-"`
	GeneratedAt time.Time                   `json:"generatedAt"`
}

// NFTReportServiceConfig holds the service's collaborators
type NFTReportServiceConfig struct {
	Fetcher  TransferSource // required
	Renderer *ReportRenderer
	Stats    ReportStatsSink
	Logger   *logging.Logger
	Now      func() time.Time
}

// NFTReportService runs fetch, aggregate, classify and render for one wallet
type NFTReportService struct {
	fetcher  TransferSource
	renderer *ReportRenderer
	stats    ReportStatsSink
	logger   *logging.Logger
	now      func() time.Time
}

// NewNFTReportService creates a report service
func NewNFTReportService(cfg NFTReportServiceConfig) *NFTReportService {
	s := &NFTReportService{
		fetcher:  cfg.Fetcher,
		renderer: cfg.Renderer,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.renderer == nil {
		s.renderer = NewReportRenderer(nil)
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = s.logger.WithComponent("nft_report")
	return s
}

// GenerateReport produces the report for address. It never returns an
// error: every failure maps to a no-data or generic error outcome.
func (s *NFTReportService) GenerateReport(ctx context.Context, address string) *ReportOutcome {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	address = strings.ToLower(strings.TrimSpace(address))

	logger := logging.FromContextOr(ctx, s.logger).WithFields(map[string]interface{}{
		logging.FieldRequestID: requestID,
		logging.FieldAddress:   address,
	})
	ctx = logging.WithLogger(ctx, logger)

	outcome := &ReportOutcome{
		RequestID: requestID,
		Address:   address,
		Checksum:  adapter.ChecksumAddress(address),
	}

	logger.Info("Fetching NFT data for wallet")
	started := s.now()
	fetched := s.fetcher.FetchAllTransfersDetailed(ctx, address)
	outcome.Pages = fetched.Pages
	outcome.FetchFailed = fetched.Failed

	if len(fetched.Records) == 0 {
		outcome.Kind = types.OutcomeNoData
		outcome.Text = fmt.Sprintf(NoDataMessageFormat, address)
		outcome.GeneratedAt = s.now()
		entry := logger.WithFields(map[string]interface{}{
			logging.FieldOutcome: outcome.Kind,
			"pages":              fetched.Pages,
			"fetchFailed":        fetched.Failed,
		})
		if fetched.Failed {
			if cause := adapter.CategorizeFetchError(fetched.Err); cause != nil {
				entry = entry.WithError(fetched.Err).WithFields(map[string]interface{}{
					"errorCode": cause.Code,
					"retryable": apperrors.IsRetryable(cause),
				})
			}
			entry.Warn("Provider failure reported to the user as no data")
		} else {
			entry.Info("No NFT transfers found")
		}
		return outcome
	}

	now := s.now()
	text, agg, labels, err := s.build(address, fetched.Records, now)
	outcome.GeneratedAt = now
	if err != nil {
		logger.WithFields(map[string]interface{}{
			logging.FieldOutcome: types.OutcomeError,
			"records":            len(fetched.Records),
		}).ErrorWithErr("Error processing data for wallet", err)
		outcome.Kind = types.OutcomeError
		outcome.Text = ErrorMessage
		return outcome
	}

	outcome.Kind = types.OutcomeSuccess
	outcome.Text = text
	outcome.Aggregate = agg
	outcome.Labels = &labels

	logger.WithFields(map[string]interface{}{
		logging.FieldOutcome: outcome.Kind,
		"records":            agg.TotalRecords,
		"pages":              fetched.Pages,
		"invalidTimestamps":  fetched.InvalidTimestamps,
		"tenure":             labels.Tenure,
		"volume":             labels.Volume,
		"balance":            labels.Balance,
		"duration":           s.now().Sub(started).String(),
	}).Info("NFT report generated")

	s.recordStats(ctx, logger, outcome)
	return outcome
}

// build runs the pure stages and converts a panic into an error
func (s *NFTReportService) build(address string, records []types.TransferRecord, now time.Time) (text string, agg *types.AggregateResult, labels types.ClassificationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while building report: %v\n%s", r, debug.Stack())
		}
	}()

	agg = Aggregate(records, address)
	labels = Classify(agg, now)
	text, err = s.renderer.Render(address, agg, labels)
	return text, agg, labels, err
}

func (s *NFTReportService) recordStats(ctx context.Context, logger *logging.Logger, outcome *ReportOutcome) {
	if s.stats == nil {
		return
	}
	stat := models.NewReportStat(outcome.RequestID, outcome.Address, outcome.Aggregate, *outcome.Labels, outcome.Pages, outcome.GeneratedAt)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsWriteTimeout)
	defer cancel()
	if err := s.stats.InsertReportStat(writeCtx, stat); err != nil {
		logger.WithError(err).Warn("Failed to record report statistics")
	}
}

type requestIDKey struct{}

// WithRequestID attaches a request id for GenerateReport to reuse
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
