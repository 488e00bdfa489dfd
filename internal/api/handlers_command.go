package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/models"
	"github.com/nft-wallet-report/internal/service"
)

// CommandRequest is the body of POST /api/commands
type CommandRequest struct {
	ChatID   int64  `json:"chatId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// CommandResponse carries the bot's reply
type CommandResponse struct {
	Command string `json:"command,omitempty"`
	Reply   string `json:"reply"`
	Outcome string `json:"outcome"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondCategorized(w, r, apperrors.NewInvalidParameterError("body", err.Error()))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondCategorized(w, r, apperrors.NewInvalidParameterError("text", "must not be empty"))
		return
	}

	reply := s.commands.Handle(r.Context(), service.IncomingCommand{
		ChatID:   req.ChatID,
		UserID:   req.UserID,
		Username: req.Username,
		Text:     req.Text,
	})

	respondJSON(w, http.StatusOK, CommandResponse{
		Command: reply.Command,
		Reply:   reply.Reply,
		Outcome: reply.Outcome,
	})
}

// CommandHistoryResponse lists a chat's archived messages, newest first
type CommandHistoryResponse struct {
	ChatID   int64                   `json:"chatId"`
	Messages []*models.CommandRecord `json:"messages"`
}

func (s *Server) handleCommandHistory(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(mux.Vars(r)["chatId"], 10, 64)
	if err != nil {
		respondCategorized(w, r, apperrors.NewInvalidParameterError("chatId", "must be an integer"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondCategorized(w, r, apperrors.NewInvalidParameterError("limit", "must be a positive integer"))
			return
		}
	}

	records, err := s.commands.History(r.Context(), chatID, limit)
	if err != nil {
		respondCategorized(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CommandHistoryResponse{ChatID: chatID, Messages: records})
}
