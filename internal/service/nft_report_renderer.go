package service

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/nft-wallet-report/internal/types"
)

const (
	// NoImageAvailable is rendered when no transfer carried an image URL
	NoImageAvailable = "No image available"

	reportTimeLayout = "2006-01-02 15:04:05"
	notAvailable     = "N/A"
)

// RandomSource picks a uniform index in [0, n)
type RandomSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRandomSource draws from math/rand/v2's global generator
var DefaultRandomSource RandomSource = globalRand{}

var tenureSentences = map[types.TenureLabel]string{
	types.TenureOG:      "You're an OG! Your first transaction was over 3 years ago. 🎉",
	types.TenureGrowing: "You're relatively new, but there's always room to grow!",
	types.TenureNew:     "None of your transfers carry a date yet, so your story starts now! ✨",
}

var volumeSentences = map[types.VolumeLabel]string{
	types.VolumeStarter:    "You're just getting started with fewer than 500 transactions. 🚀",
	types.VolumeSolid:      "You're on your way with a solid 501-1500 transactions. 💪",
	types.VolumeImpressive: "Impressive! You have between 1501-3000 transactions. 🌟",
	types.VolumePowerUser:  "You're a true power user with over 3000 transactions! 🔥",
}

var balanceSentences = map[types.BalanceLabel]string{
	types.BalanceReceiver: "You're a receiver! You love collecting from others. 🎁",
	types.BalanceGiver:    "You're a giver! Sharing is your middle name. ❤️",
	types.BalanceBalanced: "You're perfectly balanced, like all things should be. ⚖️",
}

// ReportRenderer formats an aggregate and its labels into the report text
type ReportRenderer struct {
	random RandomSource
}

// NewReportRenderer creates a renderer. A nil source uses DefaultRandomSource.
func NewReportRenderer(random RandomSource) *ReportRenderer {
	if random == nil {
		random = DefaultRandomSource
	}
	return &ReportRenderer{random: random}
}

// PickImage returns one URL chosen uniformly at random, or NoImageAvailable
func (r *ReportRenderer) PickImage(urls []string) string {
	if len(urls) == 0 {
		return NoImageAvailable
	}
	return urls[r.random.IntN(len(urls))]
}

// Render produces the multi-line report. Output is deterministic apart from
// the image pick.
func (r *ReportRenderer) Render(address string, agg *types.AggregateResult, labels types.ClassificationResult) (string, error) {
	if agg == nil {
		return "", fmt.Errorf("render %s: nil aggregate", address)
	}
	tenure, ok := tenureSentences[labels.Tenure]
	if !ok {
		return "", fmt.Errorf("render %s: unknown tenure label %q", address, labels.Tenure)
	}
	volume, ok := volumeSentences[labels.Volume]
	if !ok {
		return "", fmt.Errorf("render %s: unknown volume label %q", address, labels.Volume)
	}
	balance, ok := balanceSentences[labels.Balance]
	if !ok {
		return "", fmt.Errorf("render %s: unknown balance label %q", address, labels.Balance)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**NFT Wallet Report for %s**\n\n", address)
	fmt.Fprintf(&b, "**Total Records:** %d\n", agg.TotalRecords)
	fmt.Fprintf(&b, "**Unique Types:** %d\n", agg.UniqueTypes())
	fmt.Fprintf(&b, "**Unique Types Breakdown:** %s\n", formatTypeBreakdown(agg.UniqueTypeCounts))
	fmt.Fprintf(&b, "**Earliest Transaction:** %s\n", FormatTimestamp(agg.EarliestTimestamp))
	fmt.Fprintf(&b, "**Most Recent Transaction:** %s\n", FormatTimestamp(agg.LatestTimestamp))
	fmt.Fprintf(&b, "**Received vs Sent:** %s\n\n", formatDirections(agg.DirectionCounts))
	b.WriteString(tenure + "\n")
	b.WriteString(volume + "\n")
	b.WriteString(balance + "\n\n")
	b.WriteString("**Here's a random NFT image from your collection:**\n")
	b.WriteString(r.PickImage(agg.ImageURLs))

	return b.String(), nil
}

// FormatTimestamp renders Unix seconds in UTC, or N/A when absent
func FormatTimestamp(ts *int64) string {
	if ts == nil {
		return notAvailable
	}
	return time.Unix(*ts, 0).UTC().Format(reportTimeLayout)
}

func formatTypeBreakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func formatDirections(counts map[types.Direction]int) string {
	parts := make([]string, 0, len(types.Directions))
	for _, d := range types.Directions {
		parts = append(parts, fmt.Sprintf("%s: %d", d, counts[d]))
	}
	return strings.Join(parts, ", ")
}
