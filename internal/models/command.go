package models

import (
	"time"
)

// Message types stored in the command log
const (
	MessageTypeCommand = "command"
	MessageTypeText    = "text"
)

// CommandRecord is one chat message received by the transport, as stored in
// Postgres. Command and Argument are empty for plain text messages.
type CommandRecord struct {
	ID          string    `json:"id" db:"id"`
	ChatID      int64     `json:"chatId" db:"chat_id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Username    string    `json:"username,omitempty" db:"username"`
	MessageType string    `json:"messageType" db:"message_type"`
	Text        string    `json:"text" db:"text"`
	Command     string    `json:"command,omitempty" db:"command"`
	Argument    string    `json:"argument,omitempty" db:"argument"`
	Outcome     string    `json:"outcome" db:"outcome"`
	ReceivedAt  time.Time `json:"receivedAt" db:"received_at"`
}
