package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MessageUser   MessageType = "user"
	MessageSystem MessageType = "system"
	MessageError  MessageType = "error"
)

type (
	MessageType string

	// ExpenseRecord is a single persisted spending entry. It is never mutated
	// after creation; deletion happens by id or in bulk.
	ExpenseRecord struct {
		ID          string
		Category    string
		Amount      decimal.Decimal
		Description string
		Timestamp   time.Time
	}

	// ChatMessage is one line of the conversation log. System messages that
	// confirm a recorded expense carry its ID.
	ChatMessage struct {
		ID        string
		Text      string
		Timestamp time.Time
		Type      MessageType
		ExpenseID *string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrZeroTimestamp      = errors.New("timestamp cannot be zero")
	ErrEmptyMessage       = errors.New("empty message text")
	ErrInvalidMessageType = errors.New("invalid message type")
)

// NewID returns a fresh opaque identifier for records and messages.
func NewID() string {
	return uuid.NewString()
}

// NewExpenseRecord builds a record with a new ID.
func NewExpenseRecord(category string, amount decimal.Decimal, description string, ts time.Time) ExpenseRecord {
	return ExpenseRecord{
		ID:          NewID(),
		Category:    strings.TrimSpace(category),
		Amount:      amount,
		Description: description,
		Timestamp:   ts,
	}
}

func (e ExpenseRecord) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// NewChatMessage builds a message with a new ID. expenseID may be nil.
func NewChatMessage(text string, typ MessageType, ts time.Time, expenseID *string) ChatMessage {
	return ChatMessage{
		ID:        NewID(),
		Text:      text,
		Timestamp: ts,
		Type:      typ,
		ExpenseID: expenseID,
	}
}

func (t MessageType) IsValid() bool {
	switch t {
	case MessageUser, MessageSystem, MessageError:
		return true
	default:
		return false
	}
}

func (m ChatMessage) Validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyMessage
	}
	if !m.Type.IsValid() {
		return ErrInvalidMessageType
	}
	if m.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// IsUser reports whether the message was typed (or spoken) by the user.
func (m ChatMessage) IsUser() bool {
	return m.Type == MessageUser
}
