package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/nft-wallet-report/internal/config"
	"github.com/nft-wallet-report/internal/types"
)

const (
	// ProviderAnkr names the provider in logs and errors
	ProviderAnkr = "ankr"

	// MethodGetNFTTransfers is the JSON-RPC method for paginated transfer history
	MethodGetNFTTransfers = "ankr_getNftTransfers"

	maxErrorBodyBytes = 512
)

// HTTPDoer is the subset of *http.Client the client needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PageResult is the decoded outcome of one ankr_getNftTransfers call.
// It is one of PageOK, PageEndOfData or PageTransportError.
type PageResult interface {
	isPageResult()
}

// PageOK carries one page of transfers. An empty NextToken means no more pages.
// InvalidTimestamps counts records whose timestamp could not be parsed; those
// records are kept with the timestamp treated as absent.
type PageOK struct {
	Transfers         []types.TransferRecord
	NextToken         string
	InvalidTimestamps int
}

// PageEndOfData means the call succeeded but the response had no
// result.transfers envelope. RPCError is set when the provider returned
// a JSON-RPC error object.
type PageEndOfData struct {
	RPCError *RPCError
}

// PageTransportError means the call itself failed
type PageTransportError struct {
	Err error
}

func (PageOK) isPageResult()             {}
func (PageEndOfData) isPageResult()      {}
func (PageTransportError) isPageResult() {}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type nftTransfersParams struct {
	Address    []string `json:"address"`
	PageSize   int      `json:"pageSize"`
	PageToken  string   `json:"pageToken,omitempty"`
	Blockchain []string `json:"blockchain,omitempty"`
}

// RPCError is a JSON-RPC error object
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  *transfersPage  `json:"result"`
	Error   *RPCError       `json:"error"`
}

type transfersPage struct {
	Transfers     *[]wireTransfer `json:"transfers"`
	NextPageToken string          `json:"nextPageToken"`
}

// wireTransfer mirrors one transfer as Ankr sends it. Timestamp arrives as
// a number on most chains, and as a decimal or 0x-hex string on a few.
type wireTransfer struct {
	FromAddress     string          `json:"fromAddress"`
	ToAddress       string          `json:"toAddress"`
	Type            string          `json:"type"`
	Timestamp       json.RawMessage `json:"timestamp"`
	ImageURL        string          `json:"imageUrl"`
	Blockchain      string          `json:"blockchain"`
	ContractAddress string          `json:"contractAddress"`
	TokenID         string          `json:"tokenId"`
	TransactionHash string          `json:"transactionHash"`
	CollectionName  string          `json:"collectionName"`
	Name            string          `json:"name"`
}

func (w *wireTransfer) toRecord() (types.TransferRecord, error) {
	rec := types.TransferRecord{
		FromAddress:     w.FromAddress,
		ToAddress:       w.ToAddress,
		Type:            w.Type,
		ImageURL:        w.ImageURL,
		Blockchain:      w.Blockchain,
		ContractAddress: w.ContractAddress,
		TokenID:         w.TokenID,
		TransactionHash: w.TransactionHash,
		CollectionName:  w.CollectionName,
		Name:            w.Name,
	}
	ts, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return rec, err
	}
	rec.Timestamp = ts
	return rec, nil
}

func parseTimestamp(raw json.RawMessage) (*int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		u, err := hexutil.DecodeUint64(s)
		if err != nil || u > math.MaxInt64 {
			return nil, fmt.Errorf("invalid timestamp %q", s)
		}
		v := int64(u)
		return &v, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", s)
	}
	v := int64(f)
	return &v, nil
}

// AnkrClient issues single ankr_getNftTransfers calls
type AnkrClient struct {
	cfg        config.AnkrConfig
	httpClient HTTPDoer
	endpoint   string
	health     *HealthTracker
	nextID     atomic.Int64
}

// NewAnkrClient creates a client. A nil httpClient uses a default *http.Client;
// the per-call deadline comes from cfg.RequestTimeout either way.
func NewAnkrClient(cfg config.AnkrConfig, httpClient HTTPDoer) *AnkrClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10000
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &AnkrClient{
		cfg:        cfg,
		httpClient: httpClient,
		endpoint:   buildEndpoint(cfg.BaseURL, cfg.APIKey),
		health:     NewHealthTracker(ProviderAnkr),
	}
}

func buildEndpoint(baseURL, apiKey string) string {
	base := strings.TrimRight(baseURL, "/")
	if apiKey != "" {
		base += "/" + apiKey
	}
	return base + "/?" + MethodGetNFTTransfers
}

// Health returns the client's health tracker
func (c *AnkrClient) Health() *HealthTracker {
	return c.health
}

// GetNFTTransfersPage fetches one page of transfers for address. pageToken
// is omitted from the request when empty.
func (c *AnkrClient) GetNFTTransfersPage(ctx context.Context, address, pageToken string) PageResult {
	start := time.Now()
	res := c.doPage(ctx, address, pageToken)
	if te, ok := res.(PageTransportError); ok {
		c.health.RecordFailure(te.Err)
	} else {
		c.health.RecordSuccess(time.Since(start))
	}
	return res
}

func (c *AnkrClient) doPage(ctx context.Context, address, pageToken string) PageResult {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  MethodGetNFTTransfers,
		Params: nftTransfersParams{
			Address:    []string{address},
			PageSize:   c.cfg.PageSize,
			PageToken:  pageToken,
			Blockchain: c.cfg.Blockchains,
		},
		ID: c.nextID.Add(1),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return transportError("encode", err, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return transportError("build request", err, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return transportError("request", fmt.Errorf("%w after %s: %v", ErrProviderTimeout, c.cfg.RequestTimeout, err), nil)
		}
		if ctx.Err() != nil {
			return transportError("request", ctx.Err(), nil)
		}
		return transportError("request", fmt.Errorf("%w: %v", ErrProviderUnavailable, err), nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		details := map[string]interface{}{"status": resp.StatusCode, "body": string(snippet)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return transportError("request", ErrProviderRateLimit, details)
		case resp.StatusCode >= 500:
			return transportError("request", fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode), details)
		default:
			return transportError("request", fmt.Errorf("%w: HTTP %d", ErrProviderRejected, resp.StatusCode), details)
		}
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return transportError("decode", fmt.Errorf("%w while reading body", ErrProviderTimeout), nil)
		}
		return transportError("decode", fmt.Errorf("%w: %v", ErrMalformedResponse, err), nil)
	}

	if decoded.Result == nil || decoded.Result.Transfers == nil {
		return PageEndOfData{RPCError: decoded.Error}
	}

	wire := *decoded.Result.Transfers
	page := PageOK{
		Transfers: make([]types.TransferRecord, 0, len(wire)),
		NextToken: decoded.Result.NextPageToken,
	}
	for i := range wire {
		rec, err := wire[i].toRecord()
		if err != nil {
			page.InvalidTimestamps++
		}
		page.Transfers = append(page.Transfers, rec)
	}
	return page
}

func transportError(op string, err error, details map[string]interface{}) PageTransportError {
	return PageTransportError{Err: NewAdapterError(ProviderAnkr, op, err, details)}
}
