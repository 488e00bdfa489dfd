package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondCategorized maps err through the error categories. Causes are
// logged, never written to the client.
func respondCategorized(w http.ResponseWriter, r *http.Request, err error) {
	categorized := apperrors.Categorize(err)
	if apperrors.IsUserError(categorized) {
		logging.FromContext(r.Context()).WithError(err).Debug("Request rejected")
	} else {
		logging.FromContext(r.Context()).ErrorWithErr("Request failed", err)
	}
	serviceErr := categorized.ToServiceError()
	respondError(w, categorized.StatusCode, serviceErr.Code, serviceErr.Message, serviceErr.Details)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondText sends a plain text response.
func respondText(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(text))
}

// parseJSONBody parses a JSON request body, rejecting unknown fields.
func parseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

const maxBodyBytes = 64 << 10
