// Package types provides common type definitions for the NFT wallet reporter.
package types

// Direction classifies a transfer relative to the wallet being reported on
type Direction string

const (
	// DirectionSent means the wallet is the sender
	DirectionSent Direction = "sent"
	// DirectionReceived means the wallet is the recipient
	DirectionReceived Direction = "received"
	// DirectionOther means neither endpoint is the wallet
	DirectionOther Direction = "other"
)

// Directions lists every direction in display order
var Directions = []Direction{DirectionSent, DirectionReceived, DirectionOther}

// TenureLabel describes how long ago the wallet's first NFT activity happened
type TenureLabel string

const (
	// TenureOG means the first dated transfer is more than three years old
	TenureOG TenureLabel = "OG"
	// TenureGrowing means the first dated transfer is within the last three years
	TenureGrowing TenureLabel = "growing"
	// TenureNew means no transfer carried a timestamp
	TenureNew TenureLabel = "new"
)

// VolumeLabel buckets the total number of transfer records
type VolumeLabel string

const (
	VolumeStarter    VolumeLabel = "starter"
	VolumeSolid      VolumeLabel = "solid"
	VolumeImpressive VolumeLabel = "impressive"
	VolumePowerUser  VolumeLabel = "power-user"
)

// BalanceLabel compares received and sent transfer counts
type BalanceLabel string

const (
	BalanceReceiver BalanceLabel = "receiver"
	BalanceGiver    BalanceLabel = "giver"
	BalanceBalanced BalanceLabel = "balanced"
)

// ReportOutcomeKind is the observable result of one report invocation
type ReportOutcomeKind string

const (
	// OutcomeSuccess means a full report was rendered
	OutcomeSuccess ReportOutcomeKind = "success"
	// OutcomeNoData means the fetcher returned no records
	OutcomeNoData ReportOutcomeKind = "no_data"
	// OutcomeError means aggregation, classification or rendering failed
	OutcomeError ReportOutcomeKind = "error"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// TransferRecord is one NFT transfer or ownership event returned by the provider.
// Empty strings and a nil Timestamp mean the provider omitted the field.
type TransferRecord struct {
	FromAddress     string `json:"fromAddress"`
	ToAddress       string `json:"toAddress"`
	Type            string `json:"type,omitempty"`
	Timestamp       *int64 `json:"timestamp,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
	Blockchain      string `json:"blockchain,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	TokenID         string `json:"tokenId,omitempty"`
	TransactionHash string `json:"transactionHash,omitempty"`
	CollectionName  string `json:"collectionName,omitempty"`
	Name            string `json:"name,omitempty"`
}

// HasTimestamp reports whether the record carries a usable timestamp
func (r *TransferRecord) HasTimestamp() bool {
	return r.Timestamp != nil && *r.Timestamp != 0
}

// AggregateResult holds the statistics computed from one wallet's transfers
type AggregateResult struct {
	TotalRecords      int               `json:"totalRecords"`
	UniqueTypeCounts  map[string]int    `json:"uniqueTypeCounts"`
	DirectionCounts   map[Direction]int `json:"directionCounts"`
	EarliestTimestamp *int64            `json:"earliestTimestamp,omitempty"`
	LatestTimestamp   *int64            `json:"latestTimestamp,omitempty"`
	ImageURLs         []string          `json:"imageUrls"`
}

// NewAggregateResult returns an empty result with every direction key present
func NewAggregateResult() *AggregateResult {
	counts := make(map[Direction]int, len(Directions))
	for _, d := range Directions {
		counts[d] = 0
	}
	return &AggregateResult{
		UniqueTypeCounts: make(map[string]int),
		DirectionCounts:  counts,
		ImageURLs:        []string{},
	}
}

// ObserveTimestamp widens the earliest/latest bounds to include ts
func (a *AggregateResult) ObserveTimestamp(ts int64) {
	if a.EarliestTimestamp == nil || ts < *a.EarliestTimestamp {
		v := ts
		a.EarliestTimestamp = &v
	}
	if a.LatestTimestamp == nil || ts > *a.LatestTimestamp {
		v := ts
		a.LatestTimestamp = &v
	}
}

// UniqueTypes returns the number of distinct NFT types seen
func (a *AggregateResult) UniqueTypes() int {
	return len(a.UniqueTypeCounts)
}

// ClassificationResult holds the three independent labels derived from an aggregate
type ClassificationResult struct {
	Tenure  TenureLabel  `json:"tenure"`
	Volume  VolumeLabel  `json:"volume"`
	Balance BalanceLabel `json:"balance"`
}
