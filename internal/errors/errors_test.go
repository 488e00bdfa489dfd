package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nft-wallet-report/internal/types"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "invalid address",
			err:        NewInvalidAddressError("0x123"),
			wantCode:   CodeInvalidAddress,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrapped provider error",
			err:        fmt.Errorf("page 2: %w", NewProviderError("ankr", fmt.Errorf("EOF"))),
			wantCode:   CodeProviderError,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("call: %w", context.DeadlineExceeded),
			wantCode:   CodeProviderTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "service error",
			err:        &types.ServiceError{Code: CodeInvalidCommand, Message: "Usage: /wallet_nft <wallet_address>"},
			wantCode:   CodeInvalidCommand,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantCode:   CodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
		})
	}

	assert.Nil(t, Categorize(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewProviderTimeoutError("ankr", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(NewProviderError("ankr", nil)))
	assert.False(t, IsRetryable(NewBudgetExhaustedError("ankr_getNftTransfers", nil)))
	assert.False(t, IsRetryable(NewInvalidAddressError("nope")))
	assert.False(t, IsRetryable(nil))
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(NewInvalidCommandError("/wallet_nft", "Usage: /wallet_nft <wallet_address>")))
	assert.True(t, IsUserError(NewRateLimitError(1)))
	assert.False(t, IsUserError(NewDatabaseError("insert", nil)))
}

func TestToServiceError(t *testing.T) {
	svc := NewInvalidAddressError("abc").ToServiceError()
	assert.Equal(t, CodeInvalidAddress, svc.Code)
	assert.Equal(t, "abc", svc.Details["address"])
}
