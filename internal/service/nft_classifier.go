package service

import (
	"time"

	"github.com/nft-wallet-report/internal/types"
)

// Classification thresholds
const (
	// OGTenure is how old the first dated transfer must be for the OG label.
	// Leap days are ignored.
	OGTenure = 3 * 365 * 24 * time.Hour

	StarterMaxRecords    = 500
	SolidMaxRecords      = 1500
	ImpressiveMaxRecords = 3000
)

// Classify derives the tenure, volume and balance labels for an aggregate.
// now is passed in so results are reproducible.
func Classify(agg *types.AggregateResult, now time.Time) types.ClassificationResult {
	return types.ClassificationResult{
		Tenure:  ClassifyTenure(agg.EarliestTimestamp, now),
		Volume:  ClassifyVolume(agg.TotalRecords),
		Balance: ClassifyBalance(agg.DirectionCounts[types.DirectionReceived], agg.DirectionCounts[types.DirectionSent]),
	}
}

// ClassifyTenure labels a wallet by the age of its earliest dated transfer
func ClassifyTenure(earliest *int64, now time.Time) types.TenureLabel {
	if earliest == nil {
		return types.TenureNew
	}
	if time.Unix(*earliest, 0).Before(now.Add(-OGTenure)) {
		return types.TenureOG
	}
	return types.TenureGrowing
}

// ClassifyVolume buckets the total record count
func ClassifyVolume(total int) types.VolumeLabel {
	switch {
	case total <= StarterMaxRecords:
		return types.VolumeStarter
	case total <= SolidMaxRecords:
		return types.VolumeSolid
	case total <= ImpressiveMaxRecords:
		return types.VolumeImpressive
	default:
		return types.VolumePowerUser
	}
}

// ClassifyBalance compares received and sent counts
func ClassifyBalance(received, sent int) types.BalanceLabel {
	switch {
	case received > sent:
		return types.BalanceReceiver
	case received < sent:
		return types.BalanceGiver
	default:
		return types.BalanceBalanced
	}
}
