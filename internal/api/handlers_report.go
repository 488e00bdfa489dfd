package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nft-wallet-report/internal/adapter"
	apperrors "github.com/nft-wallet-report/internal/errors"
)

// handleNFTReport runs the report pipeline for the path address.
// ?format=text returns the report text exactly as a chat reply would carry it.
func (s *Server) handleNFTReport(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	address, err := adapter.ValidateAddress(raw)
	if err != nil {
		respondCategorized(w, r, apperrors.NewInvalidAddressError(raw))
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "text" {
		respondCategorized(w, r, apperrors.NewInvalidParameterError("format", "must be json or text"))
		return
	}

	outcome := s.reports.GenerateReport(r.Context(), address)

	if format == "text" {
		respondText(w, http.StatusOK, outcome.Text)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}
