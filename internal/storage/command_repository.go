package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/nft-wallet-report/internal/errors"
	"github.com/nft-wallet-report/internal/models"
)

// CommandRepository archives inbound chat commands in Postgres
type CommandRepository struct {
	db *PostgresDB
}

// NewCommandRepository creates a command repository
func NewCommandRepository(db *PostgresDB) *CommandRepository {
	return &CommandRepository{db: db}
}

// Save inserts one command record. Missing IDs, timestamps and message
// types are filled in.
func (r *CommandRepository) Save(ctx context.Context, record *models.CommandRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}
	if record.MessageType == "" {
		record.MessageType = models.MessageTypeCommand
		if record.Command == "" {
			record.MessageType = models.MessageTypeText
		}
	}

	query := `
		INSERT INTO command_log (id, chat_id, user_id, username, message_type, text, command, argument, outcome, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		record.ID,
		record.ChatID,
		record.UserID,
		record.Username,
		record.MessageType,
		record.Text,
		record.Command,
		record.Argument,
		record.Outcome,
		record.ReceivedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("archive command", err)
	}

	return nil
}

// RecentByChat returns the latest messages for a chat, newest first
func (r *CommandRepository) RecentByChat(ctx context.Context, chatID int64, limit int) ([]*models.CommandRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, chat_id, user_id, username, message_type, text, command, argument, outcome, received_at
		FROM command_log
		WHERE chat_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query commands", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.CommandRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan commands: %w", err)
	}
	return records, nil
}
