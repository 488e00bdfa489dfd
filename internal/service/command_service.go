package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nft-wallet-report/internal/adapter"
	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/logging"
	"github.com/nft-wallet-report/internal/models"
)

// Supported chat commands
const (
	CommandWalletNFT   = "/wallet_nft"
	CommandWalletToken = "/wallet_token"
	CommandWallet      = "/wallet"
	CommandHelp        = "/commands"
)

// Command outcomes recorded in the archive besides the report outcomes
const (
	CommandOutcomeUsage          = "usage"
	CommandOutcomeInvalidAddress = "invalid_address"
	CommandOutcomeReplied        = "replied"
	CommandOutcomeUnknown        = "unknown"
	CommandOutcomeIgnored        = "ignored"
)

const (
	// HelpText is the reply to /commands
	HelpText = "Available Commands:\n" +
		"- /wallet_nft <wallet_address>: Fetch NFT data for the specified wallet.\n" +
		"- /wallet_token <wallet_address>: Fetch token data for the specified wallet.\n" +
		"- /commands: Show this list of commands."

	unknownCommandText = "Unknown command. Send /commands to see what I can do."
	walletAckText      = "Nice!"
	tokenPendingFormat = "Token data for %s will be implemented soon!"

	archiveTimeout = 5 * time.Second

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ReportGenerator runs the NFT report pipeline for one address
type ReportGenerator interface {
	GenerateReport(ctx context.Context, address string) *ReportOutcome
}

// CommandArchive stores every inbound message and lists a chat's history
type CommandArchive interface {
	Save(ctx context.Context, record *models.CommandRecord) error
	RecentByChat(ctx context.Context, chatID int64, limit int) ([]*models.CommandRecord, error)
}

// IncomingCommand is one chat message addressed to the bot
type IncomingCommand struct {
	ChatID   int64  `json:"chatId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// CommandReply is the text sent back to the chat
type CommandReply struct {
	Command string         `json:"command,omitempty"`
	Reply   string         `json:"reply"`
	Outcome string         `json:"outcome"`
	Report  *ReportOutcome `json:"-"`
}

// CommandService parses chat commands and dispatches them
type CommandService struct {
	reports ReportGenerator
	archive CommandArchive
	logger  *logging.Logger
	now     func() time.Time
}

// NewCommandService creates a command service. archive may be nil.
func NewCommandService(reports ReportGenerator, archive CommandArchive, logger *logging.Logger) *CommandService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &CommandService{
		reports: reports,
		archive: archive,
		logger:  logger.WithComponent("commands"),
		now:     time.Now,
	}
}

// ParseCommand splits a message into its command and arguments. A trailing
// "@botname" on the command is dropped. ok is false when text is not a command.
func ParseCommand(text string) (command string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	command = strings.ToLower(fields[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	return command, fields[1:], true
}

// UsageText returns the usage line for a command that takes an address
func UsageText(command string) string {
	return fmt.Sprintf("Usage: %s <wallet_address>", command)
}

// Handle dispatches one incoming message and archives it
func (s *CommandService) Handle(ctx context.Context, in IncomingCommand) *CommandReply {
	command, args, ok := ParseCommand(in.Text)
	logger := logging.FromContextOr(ctx, s.logger).WithFields(map[string]interface{}{
		"chat_id": in.ChatID,
		"user_id": in.UserID,
		"command": command,
	})

	var reply *CommandReply
	if !ok {
		reply = &CommandReply{Outcome: CommandOutcomeIgnored}
	} else {
		reply = s.dispatch(logging.WithLogger(ctx, logger), command, args)
		reply.Command = command
	}

	logger.WithField(logging.FieldOutcome, reply.Outcome).Info("Handled command")
	s.archiveCommand(ctx, logger, in, command, args, reply.Outcome)
	return reply
}

// usage replies with the command's usage line
func (s *CommandService) usage(ctx context.Context, command string, args []string) *CommandReply {
	text := UsageText(command)
	logging.FromContextOr(ctx, s.logger).
		WithError(apperrors.NewInvalidCommandError(command, text)).
		WithField("args", len(args)).
		Info("Rejected command arguments")
	return &CommandReply{Reply: text, Outcome: CommandOutcomeUsage}
}

func (s *CommandService) dispatch(ctx context.Context, command string, args []string) *CommandReply {
	switch command {
	case CommandWalletNFT:
		if len(args) != 1 {
			return s.usage(ctx, command, args)
		}
		address, err := adapter.ValidateAddress(args[0])
		if err != nil {
			logging.FromContextOr(ctx, s.logger).WithError(apperrors.NewInvalidAddressError(args[0])).Info("Rejected wallet address")
			return &CommandReply{
				Reply:   fmt.Sprintf("Invalid wallet address: %s\n%s", args[0], UsageText(command)),
				Outcome: CommandOutcomeInvalidAddress,
			}
		}
		outcome := s.reports.GenerateReport(ctx, address)
		return &CommandReply{Reply: outcome.Text, Outcome: string(outcome.Kind), Report: outcome}

	case CommandWalletToken:
		if len(args) != 1 {
			return s.usage(ctx, command, args)
		}
		return &CommandReply{Reply: fmt.Sprintf(tokenPendingFormat, args[0]), Outcome: CommandOutcomeReplied}

	case CommandWallet:
		if len(args) != 1 {
			return s.usage(ctx, command, args)
		}
		logging.FromContextOr(ctx, s.logger).WithField(logging.FieldAddress, args[0]).Info("Received wallet command")
		return &CommandReply{Reply: walletAckText, Outcome: CommandOutcomeReplied}

	case CommandHelp:
		return &CommandReply{Reply: HelpText, Outcome: CommandOutcomeReplied}

	default:
		return &CommandReply{Reply: unknownCommandText, Outcome: CommandOutcomeUnknown}
	}
}

func (s *CommandService) archiveCommand(ctx context.Context, logger *logging.Logger, in IncomingCommand, command string, args []string, outcome string) {
	if s.archive == nil {
		return
	}
	messageType := models.MessageTypeCommand
	if command == "" {
		messageType = models.MessageTypeText
	}
	record := &models.CommandRecord{
		ID:          uuid.NewString(),
		ChatID:      in.ChatID,
		UserID:      in.UserID,
		Username:    in.Username,
		MessageType: messageType,
		Text:        in.Text,
		Command:     command,
		Argument:    strings.Join(args, " "),
		Outcome:     outcome,
		ReceivedAt:  s.now().UTC(),
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.archive.Save(saveCtx, record); err != nil {
		logger.WithError(err).Warn("Failed to archive command")
	}
}

// History returns a chat's archived messages, newest first. limit is clamped
// to [1, 100] with 20 used when it is not positive.
func (s *CommandService) History(ctx context.Context, chatID int64, limit int) ([]*models.CommandRecord, error) {
	if s.archive == nil {
		return nil, apperrors.NewServiceUnavailableError("command archive", nil)
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	records, err := s.archive.RecentByChat(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.CommandRecord{}
	}
	return records, nil
}
