package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/models"
	"github.com/nft-wallet-report/internal/service"
	"github.com/nft-wallet-report/internal/types"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

func TestNFTReport_JSON(t *testing.T) {
	server := createTestServer()

	w := server.do(t, http.MethodGet, "/api/wallets/"+testWallet+"/nft-report", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, []string{strings.ToLower(testWallet)}, server.reports.addresses)

	var outcome service.ReportOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, types.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, strings.ToLower(testWallet), outcome.Address)
}

func TestNFTReport_Text(t *testing.T) {
	server := createTestServerWithConfig(&ServerConfig{RequestsPerSecond: 10, Burst: 10}, Dependencies{
		Reports: &mockReportService{generateFunc: func(_ context.Context, address string) *service.ReportOutcome {
			return &service.ReportOutcome{
				Address:     address,
				Kind:        types.OutcomeNoData,
				Text:        "No NFT transfer data found for wallet " + address + ".",
				GeneratedAt: time.Now(),
			}
		}},
	})

	w := server.do(t, http.MethodGet, "/api/wallets/"+testWallet+"/nft-report?format=text", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "No NFT transfer data found for wallet "+strings.ToLower(testWallet)+".", w.Body.String())
}

func TestNFTReport_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"not hex", "/api/wallets/vitalik.eth/nft-report", "INVALID_ADDRESS"},
		{"too short", "/api/wallets/0x1234/nft-report", "INVALID_ADDRESS"},
		{"missing prefix", "/api/wallets/52908400098527886E0F7030069857D2E4169EE7/nft-report", "INVALID_ADDRESS"},
		{"bad format", "/api/wallets/" + testWallet + "/nft-report?format=xml", "INVALID_PARAMETER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer()

			w := server.do(t, http.MethodGet, tt.path, nil, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Empty(t, server.reports.addresses, "pipeline must not run for invalid input")
		})
	}
}

func TestCommand_Success(t *testing.T) {
	server := createTestServer()
	body, _ := json.Marshal(CommandRequest{ChatID: -1001, UserID: 5, Username: "bob", Text: "/commands"})

	w := server.do(t, http.MethodPost, "/api/commands", bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.HelpText, resp.Reply)
	assert.Equal(t, service.CommandOutcomeReplied, resp.Outcome)

	require.Len(t, server.commands.received, 1)
	assert.Equal(t, int64(-1001), server.commands.received[0].ChatID)
	assert.Equal(t, "bob", server.commands.received[0].Username)
}

func TestCommand_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"unknown field", `{"text":"/commands","extra":1}`},
		{"empty text", `{"chatId":1,"text":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer()

			w := server.do(t, http.MethodPost, "/api/commands", strings.NewReader(tt.body), nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, server.commands.received)
		})
	}
}

func TestCommand_MethodNotAllowed(t *testing.T) {
	server := createTestServer()

	w := server.do(t, http.MethodGet, "/api/commands", nil, nil)

	assert.Contains(t, []int{http.StatusMethodNotAllowed, http.StatusNotFound}, w.Code)
	assert.Empty(t, server.commands.received)
}

func TestCommandHistory(t *testing.T) {
	server := createTestServer()
	server.commands.history = []*models.CommandRecord{
		{ID: "b", ChatID: 42, MessageType: models.MessageTypeText, Text: "gm", Outcome: service.CommandOutcomeIgnored},
		{ID: "a", ChatID: 42, MessageType: models.MessageTypeCommand, Text: "/commands", Command: "/commands", Outcome: service.CommandOutcomeReplied},
	}

	w := server.do(t, http.MethodGet, "/api/chats/42/commands?limit=5", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp CommandHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.ChatID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "gm", resp.Messages[0].Text)
	assert.Equal(t, []int{5}, server.commands.limits)
}

func TestCommandHistory_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"non numeric chat", "/api/chats/abc/commands"},
		{"zero limit", "/api/chats/1/commands?limit=0"},
		{"non numeric limit", "/api/chats/1/commands?limit=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer()

			w := server.do(t, http.MethodGet, tt.target, nil, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), apperrors.CodeInvalidParameter)
			assert.Empty(t, server.commands.limits)
		})
	}
}

func TestCommandHistory_ArchiveDisabled(t *testing.T) {
	server := createTestServer()
	server.commands.historyErr = apperrors.NewServiceUnavailableError("command archive", nil)

	w := server.do(t, http.MethodGet, "/api/chats/1/commands", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeUnavailable)
	assert.Equal(t, []int{0}, server.commands.limits)
}
