package service

import (
	"strings"

	"github.com/nft-wallet-report/internal/types"
)

// ClassifyDirection returns the transfer's direction relative to subject.
// Both sides are compared case-insensitively; a self-transfer counts as sent.
func ClassifyDirection(record *types.TransferRecord, subject string) types.Direction {
	switch {
	case strings.EqualFold(record.FromAddress, subject):
		return types.DirectionSent
	case strings.EqualFold(record.ToAddress, subject):
		return types.DirectionReceived
	default:
		return types.DirectionOther
	}
}

// Aggregate reduces a wallet's transfer records to summary statistics in a
// single pass. Records are read, never modified.
func Aggregate(records []types.TransferRecord, subject string) *types.AggregateResult {
	result := types.NewAggregateResult()
	subject = strings.ToLower(strings.TrimSpace(subject))

	for i := range records {
		rec := &records[i]
		result.TotalRecords++
		result.DirectionCounts[ClassifyDirection(rec, subject)]++

		if rec.Type != "" {
			result.UniqueTypeCounts[rec.Type]++
		}
		if rec.HasTimestamp() {
			result.ObserveTimestamp(*rec.Timestamp)
		}
		if rec.ImageURL != "" {
			result.ImageURLs = append(result.ImageURLs, rec.ImageURL)
		}
	}

	return result
}
