package models

import (
	"time"

	"github.com/nft-wallet-report/internal/types"
)

// ReportStat is one successful report summary appended to ClickHouse
type ReportStat struct {
	RequestID     string     `json:"requestId" ch:"request_id"`
	Address       string     `json:"address" ch:"address"`
	TotalRecords  uint32     `json:"totalRecords" ch:"total_records"`
	SentCount     uint32     `json:"sentCount" ch:"sent_count"`
	ReceivedCount uint32     `json:"receivedCount" ch:"received_count"`
	OtherCount    uint32     `json:"otherCount" ch:"other_count"`
	UniqueTypes   uint16     `json:"uniqueTypes" ch:"unique_types"`
	ImageCount    uint32     `json:"imageCount" ch:"image_count"`
	EarliestAt    *time.Time `json:"earliestAt,omitempty" ch:"earliest_at"`
	LatestAt      *time.Time `json:"latestAt,omitempty" ch:"latest_at"`
	Tenure        string     `json:"tenure" ch:"tenure"`
	Volume        string     `json:"volume" ch:"volume"`
	Balance       string     `json:"balance" ch:"balance"`
	PagesFetched  uint16     `json:"pagesFetched" ch:"pages_fetched"`
	GeneratedAt   time.Time  `json:"generatedAt" ch:"generated_at"`
}

// NewReportStat flattens an aggregate and its labels into a stats row
func NewReportStat(requestID, address string, agg *types.AggregateResult, labels types.ClassificationResult, pages int, generatedAt time.Time) *ReportStat {
	stat := &ReportStat{
		RequestID:     requestID,
		Address:       address,
		TotalRecords:  uint32(agg.TotalRecords),
		SentCount:     uint32(agg.DirectionCounts[types.DirectionSent]),
		ReceivedCount: uint32(agg.DirectionCounts[types.DirectionReceived]),
		OtherCount:    uint32(agg.DirectionCounts[types.DirectionOther]),
		UniqueTypes:   uint16(agg.UniqueTypes()),
		ImageCount:    uint32(len(agg.ImageURLs)),
		Tenure:        string(labels.Tenure),
		Volume:        string(labels.Volume),
		Balance:       string(labels.Balance),
		PagesFetched:  uint16(pages),
		GeneratedAt:   generatedAt.UTC(),
	}
	if agg.EarliestTimestamp != nil {
		t := time.Unix(*agg.EarliestTimestamp, 0).UTC()
		stat.EarliestAt = &t
	}
	if agg.LatestTimestamp != nil {
		t := time.Unix(*agg.LatestTimestamp, 0).UTC()
		stat.LatestAt = &t
	}
	return stat
}
