package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nft-wallet-report/internal/types"
)

type fixedRandom struct {
	index int
	calls []int
}

func (f *fixedRandom) IntN(n int) int {
	f.calls = append(f.calls, n)
	return f.index
}

func TestRender_FullReport(t *testing.T) {
	records := []types.TransferRecord{
		{FromAddress: "0xabc", ToAddress: "0xdef", Type: "ERC721", Timestamp: ts(1600000000), ImageURL: "https://img/1.png"},
		{FromAddress: "0xdef", ToAddress: "0xabc", Type: "ERC1155", Timestamp: ts(1700000000), ImageURL: "https://img/2.png"},
		{FromAddress: "0x111", ToAddress: "0x222", Type: "ERC721"},
	}
	agg := Aggregate(records, "0xabc")
	labels := types.ClassificationResult{
		Tenure:  types.TenureOG,
		Volume:  types.VolumeStarter,
		Balance: types.BalanceBalanced,
	}
	random := &fixedRandom{index: 1}

	text, err := NewReportRenderer(random).Render("0xabc", agg, labels)
	require.NoError(t, err)

	want := strings.Join([]string{
		"**NFT Wallet Report for 0xabc**",
		"",
		"**Total Records:** 3",
		"**Unique Types:** 2",
		"**Unique Types Breakdown:** ERC1155: 1, ERC721: 2",
		"**Earliest Transaction:** 2020-09-13 12:26:40",
		"**Most Recent Transaction:** 2023-11-14 22:13:20",
		"**Received vs Sent:** sent: 1, received: 1, other: 1",
		"",
		"You're an OG! Your first transaction was over 3 years ago. 🎉",
		"You're just getting started with fewer than 500 transactions. 🚀",
		"You're perfectly balanced, like all things should be. ⚖️",
		"",
		"**Here's a random NFT image from your collection:**",
		"https://img/2.png",
	}, "\n")
	assert.Equal(t, want, text)
	assert.Equal(t, []int{2}, random.calls)
}

func TestRender_NoTimestampsNoImages(t *testing.T) {
	agg := Aggregate([]types.TransferRecord{{FromAddress: "0x1", ToAddress: "0xabc"}}, "0xabc")
	labels := types.ClassificationResult{Tenure: types.TenureNew, Volume: types.VolumeStarter, Balance: types.BalanceReceiver}
	random := &fixedRandom{}

	text, err := NewReportRenderer(random).Render("0xabc", agg, labels)
	require.NoError(t, err)

	assert.Contains(t, text, "**Earliest Transaction:** N/A\n")
	assert.Contains(t, text, "**Most Recent Transaction:** N/A\n")
	assert.Contains(t, text, "**Unique Types Breakdown:** none\n")
	assert.Contains(t, text, tenureSentences[types.TenureNew])
	assert.True(t, strings.HasSuffix(text, "\n"+NoImageAvailable))
	assert.Empty(t, random.calls, "random source must not be consulted without images")
}

func TestRender_RejectsUnknownLabel(t *testing.T) {
	agg := types.NewAggregateResult()

	_, err := NewReportRenderer(nil).Render("0xabc", agg, types.ClassificationResult{
		Tenure: "veteran", Volume: types.VolumeSolid, Balance: types.BalanceGiver,
	})
	assert.Error(t, err)

	_, err = NewReportRenderer(nil).Render("0xabc", nil, types.ClassificationResult{})
	assert.Error(t, err)
}

func TestPickImage_DefaultSourceStaysInRange(t *testing.T) {
	renderer := NewReportRenderer(nil)
	urls := []string{"a", "b", "c"}
	for i := 0; i < 100; i++ {
		assert.Contains(t, urls, renderer.PickImage(urls))
	}
	assert.Equal(t, NoImageAvailable, renderer.PickImage(nil))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "N/A", FormatTimestamp(nil))
	assert.Equal(t, "1970-01-01 00:00:00", FormatTimestamp(ts(0)))
	assert.Equal(t, "2021-01-01 00:00:00", FormatTimestamp(ts(1609459200)))
}
