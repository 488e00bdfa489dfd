package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nft-wallet-report/internal/circuitbreaker"
	"github.com/nft-wallet-report/internal/config"
	"github.com/nft-wallet-report/internal/logging"
)

const testWallet = "0xabc0000000000000000000000000000000000001"

// stubProvider serves scripted responses keyed by the request's pageToken.
type stubProvider struct {
	t *testing.T

	mu       sync.Mutex
	requests []capturedRequest
	handler  func(w http.ResponseWriter, req capturedRequest)
}

type capturedRequest struct {
	Path      string
	RawQuery  string
	Method    string
	Address   []string
	PageSize  int
	PageToken string
	Chains    []string
}

func (s *stubProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Method string `json:"method"`
		Params struct {
			Address    []string `json:"address"`
			PageSize   int      `json:"pageSize"`
			PageToken  *string  `json:"pageToken"`
			Blockchain []string `json:"blockchain"`
		} `json:"params"`
	}
	require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))

	req := capturedRequest{
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Method:   body.Method,
		Address:  body.Params.Address,
		PageSize: body.Params.PageSize,
		Chains:   body.Params.Blockchain,
	}
	if body.Params.PageToken != nil {
		req.PageToken = *body.Params.PageToken
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	s.handler(w, req)
}

func (s *stubProvider) calls() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedRequest(nil), s.requests...)
}

func writeTransfers(w http.ResponseWriter, next string, transfers ...map[string]interface{}) {
	result := map[string]interface{}{"transfers": transfers}
	if next != "" {
		result["nextPageToken"] = next
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result})
}

func transfer(from, to, typ string, ts int64) map[string]interface{} {
	return map[string]interface{}{
		"fromAddress": from,
		"toAddress":   to,
		"type":        typ,
		"timestamp":   ts,
		"blockchain":  "eth",
	}
}

func newTestFetcher(t *testing.T, handler func(w http.ResponseWriter, req capturedRequest), mutate func(*config.AnkrConfig, *TransferFetcherConfig)) (*TransferFetcher, *stubProvider) {
	t.Helper()

	stub := &stubProvider{t: t, handler: handler}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	ankrCfg := config.AnkrConfig{
		BaseURL:        srv.URL + "/multichain",
		APIKey:         "test-key",
		PageSize:       10000,
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    1,
	}
	fetcherCfg := TransferFetcherConfig{
		Logger: logging.NewLoggerWithOutput(logging.LevelDebug, logging.FormatText, &bytes.Buffer{}),
	}
	if mutate != nil {
		mutate(&ankrCfg, &fetcherCfg)
	}
	fetcherCfg.Client = NewAnkrClient(ankrCfg, srv.Client())

	f, err := NewTransferFetcher(fetcherCfg)
	require.NoError(t, err)
	return f, stub
}

func TestFetchAllTransfers_ThreePagesConcatenatedInOrder(t *testing.T) {
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		switch req.PageToken {
		case "":
			writeTransfers(w, "t1", transfer("0x1", testWallet, "ERC721", 100), transfer("0x2", testWallet, "ERC721", 101))
		case "t1":
			writeTransfers(w, "t2", transfer(testWallet, "0x3", "ERC1155", 102))
		case "t2":
			writeTransfers(w, "", transfer("0x4", "0x5", "", 0))
		default:
			t.Errorf("unexpected page token %q", req.PageToken)
		}
	}, nil)

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)

	require.False(t, res.Failed)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, StopLastPage, res.StopReason)
	require.Len(t, res.Records, 4)
	assert.Equal(t, "0x1", res.Records[0].FromAddress)
	assert.Equal(t, "0x3", res.Records[2].ToAddress)
	assert.False(t, res.Records[3].HasTimestamp())

	calls := stub.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"", "t1", "t2"}, []string{calls[0].PageToken, calls[1].PageToken, calls[2].PageToken})
	for _, c := range calls {
		assert.Equal(t, MethodGetNFTTransfers, c.Method)
		assert.Equal(t, []string{testWallet}, c.Address)
		assert.Equal(t, 10000, c.PageSize)
		assert.Equal(t, "/multichain/test-key/", c.Path)
		assert.Equal(t, MethodGetNFTTransfers, c.RawQuery)
		assert.Nil(t, c.Chains)
	}
}

func TestFetchAllTransfers_FailureOnLaterPageReturnsEmpty(t *testing.T) {
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		switch req.PageToken {
		case "":
			writeTransfers(w, "t1", transfer("0x1", testWallet, "ERC721", 100))
		case "t1":
			writeTransfers(w, "t2", transfer("0x1", testWallet, "ERC721", 100))
		default:
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		}
	}, nil)

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)

	assert.True(t, res.Failed)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)
	assert.ErrorIs(t, res.Err, ErrProviderUnavailable)
	assert.Equal(t, 2, res.Pages)
	assert.Len(t, stub.calls(), 3)

	assert.Empty(t, f.FetchAllTransfers(context.Background(), testWallet))
}

func TestFetchAllTransfers_MissingEnvelopeKeepsAccumulated(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		if req.PageToken == "" {
			writeTransfers(w, "t1", transfer("0x1", testWallet, "ERC721", 100))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"page token expired"}}`)
	}, nil)

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)

	assert.False(t, res.Failed)
	assert.Equal(t, StopEndOfData, res.StopReason)
	assert.Len(t, res.Records, 1)
}

func TestFetchAllTransfers_EmptyFirstResponse(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{}}`)
	}, nil)

	records := f.FetchAllTransfers(context.Background(), testWallet)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetchAllTransfers_DuplicateTokenStops(t *testing.T) {
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		writeTransfers(w, "loop", transfer("0x1", testWallet, "ERC721", 100))
	}, nil)

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)

	assert.Equal(t, StopDuplicateToken, res.StopReason)
	assert.Len(t, res.Records, 2)
	assert.Len(t, stub.calls(), 2)
}

func TestFetchAllTransfers_MalformedJSON(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","result":{"transfers":[`)
	}, nil)

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)
	assert.True(t, res.Failed)
	assert.ErrorIs(t, res.Err, ErrMalformedResponse)
	assert.Empty(t, res.Records)
}

func TestFetchAllTransfers_PerCallTimeout(t *testing.T) {
	release := make(chan struct{})
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}, func(c *config.AnkrConfig, _ *TransferFetcherConfig) {
		c.RequestTimeout = 50 * time.Millisecond
	})
	t.Cleanup(func() { close(release) })

	start := time.Now()
	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)

	assert.True(t, res.Failed)
	assert.ErrorIs(t, res.Err, ErrProviderTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchAllTransfers_RetriesWhenConfigured(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeTransfers(w, "", transfer("0x1", testWallet, "ERC721", 100))
	}, func(_ *config.AnkrConfig, fc *TransferFetcherConfig) {
		fc.MaxAttempts = 2
		fc.RetryDelay = time.Millisecond
	})

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)
	assert.False(t, res.Failed)
	assert.Len(t, res.Records, 1)
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestFetchAllTransfers_NoRetryOnRejection(t *testing.T) {
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}, func(_ *config.AnkrConfig, fc *TransferFetcherConfig) {
		fc.MaxAttempts = 3
		fc.RetryDelay = time.Millisecond
	})

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)
	assert.True(t, res.Failed)
	assert.ErrorIs(t, res.Err, ErrProviderRejected)
	assert.Len(t, stub.calls(), 1)
}

type denyThrottle struct{ calls int }

func (d *denyThrottle) WaitForBudget(ctx context.Context, method string) error {
	d.calls++
	return errors.New("budget exhausted")
}

func TestFetchAllTransfers_BudgetFailureIsTransportFailure(t *testing.T) {
	throttle := &denyThrottle{}
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		writeTransfers(w, "", transfer("0x1", testWallet, "ERC721", 100))
	}, func(_ *config.AnkrConfig, fc *TransferFetcherConfig) {
		fc.Throttle = throttle
	})

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)
	assert.True(t, res.Failed)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, throttle.calls)
	assert.Empty(t, stub.calls())
}

func TestFetchAllTransfers_OpenCircuitIsTransportFailure(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
		Name:             ProviderAnkr,
		MaxFailures:      1,
		FailureThreshold: 0.5,
		Timeout:          time.Hour,
		Logger:           logging.NewLoggerWithOutput(logging.LevelDebug, logging.FormatText, &bytes.Buffer{}),
	})
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		http.Error(w, "down", http.StatusInternalServerError)
	}, func(_ *config.AnkrConfig, fc *TransferFetcherConfig) {
		fc.Breaker = breaker
	})

	first := f.FetchAllTransfersDetailed(context.Background(), testWallet)
	assert.True(t, first.Failed)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.GetState())

	second := f.FetchAllTransfersDetailed(context.Background(), testWallet)
	assert.True(t, second.Failed)
	assert.ErrorIs(t, second.Err, circuitbreaker.ErrCircuitOpen)
	assert.Len(t, stub.calls(), 1)
	assert.Equal(t, circuitbreaker.StateOpen, f.BreakerStats().State)
}

func TestFetchAllTransfers_BlockchainFilterAndStringTimestamps(t *testing.T) {
	f, stub := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"transfers":[
			{"fromAddress":"0x1","toAddress":"0x2","timestamp":"1700000000","imageUrl":"https://img/1.png"},
			{"fromAddress":"0x1","toAddress":"0x2","timestamp":null}
		]}}`)
	}, func(c *config.AnkrConfig, _ *TransferFetcherConfig) {
		c.Blockchains = []string{"eth", "polygon"}
	})

	records := f.FetchAllTransfers(context.Background(), testWallet)
	require.Len(t, records, 2)
	require.True(t, records[0].HasTimestamp())
	assert.Equal(t, int64(1_700_000_000), *records[0].Timestamp)
	assert.Equal(t, "https://img/1.png", records[0].ImageURL)
	assert.False(t, records[1].HasTimestamp())
	assert.Equal(t, []string{"eth", "polygon"}, stub.calls()[0].Chains)

	health := f.Health()
	assert.Equal(t, int64(1), health.SuccessfulReqs)
	assert.True(t, health.IsHealthy)
}

func TestFetchAllTransfers_HexAndUnparseableTimestampsKeepRecords(t *testing.T) {
	logs := &bytes.Buffer{}
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, req capturedRequest) {
		switch req.PageToken {
		case "":
			writeTransfers(w, "p2", transfer("0x1", testWallet, "ERC721", 1_600_000_000))
		case "p2":
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"transfers":[
				{"fromAddress":"0x1","toAddress":"0x2","timestamp":"0x5f5e100"},
				{"fromAddress":"0x1","toAddress":"0x2","timestamp":"yesterday"}
			]}}`)
		}
	}, func(_ *config.AnkrConfig, fc *TransferFetcherConfig) {
		fc.Logger = logging.NewLoggerWithOutput(logging.LevelDebug, logging.FormatText, logs)
	})

	res := f.FetchAllTransfersDetailed(context.Background(), testWallet)

	assert.False(t, res.Failed)
	assert.Equal(t, StopLastPage, res.StopReason)
	assert.Equal(t, 2, res.Pages)
	require.Len(t, res.Records, 3)
	require.True(t, res.Records[1].HasTimestamp())
	assert.Equal(t, int64(100_000_000), *res.Records[1].Timestamp)
	assert.False(t, res.Records[2].HasTimestamp())
	assert.Equal(t, 1, res.InvalidTimestamps)
	assert.Contains(t, logs.String(), "Unparseable transfer timestamps treated as absent")
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw     string
		want    *int64
		wantErr bool
	}{
		{`1700000000`, int64Ptr(1700000000), false},
		{`"1700000000"`, int64Ptr(1700000000), false},
		{`"0x6553f100"`, int64Ptr(0x6553f100), false},
		{`1.7e9`, int64Ptr(1700000000), false},
		{`null`, nil, false},
		{`""`, nil, false},
		{`"0x"`, nil, true},
		{`"0xzz"`, nil, true},
		{`"soon"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseTimestamp(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestBuildEndpoint(t *testing.T) {
	assert.Equal(t, "https://rpc.ankr.com/multichain/k/?ankr_getNftTransfers", buildEndpoint("https://rpc.ankr.com/multichain/", "k"))
	assert.True(t, strings.HasSuffix(buildEndpoint("http://x", ""), "/?ankr_getNftTransfers"))
}

func TestNewTransferFetcher_RequiresClient(t *testing.T) {
	_, err := NewTransferFetcher(TransferFetcherConfig{})
	assert.Error(t, err)
}
