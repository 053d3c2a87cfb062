package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
)

// EventType names what happened to an expense.
type EventType string

const (
	EventExpenseCreated EventType = "created"
	EventExpenseDeleted EventType = "deleted"
)

var ErrInvalidEvent = errors.New("invalid expense event")

// ExpenseEventMessage carries a full expense snapshot so consumers never have
// to read the producer's database.
type ExpenseEventMessage struct {
	Type        EventType       `json:"type"`
	ExpenseID   string          `json:"expense_id"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	PublishedAt time.Time       `json:"published_at"`
}

func NewExpenseCreatedMessage(e core.ExpenseRecord) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Type:        EventExpenseCreated,
		ExpenseID:   e.ID,
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		Timestamp:   e.Timestamp,
		PublishedAt: time.Now(),
	}
}

func NewExpenseDeletedMessage(e core.ExpenseRecord) *ExpenseEventMessage {
	msg := NewExpenseCreatedMessage(e)
	msg.Type = EventExpenseDeleted
	return msg
}

func (m *ExpenseEventMessage) Validate() error {
	switch m.Type {
	case EventExpenseCreated, EventExpenseDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, m.Type)
	}
	if m.ExpenseID == "" {
		return fmt.Errorf("%w: missing expense id", ErrInvalidEvent)
	}
	return nil
}

// Record rebuilds the expense carried by the event.
func (m *ExpenseEventMessage) Record() core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:          m.ExpenseID,
		Category:    m.Category,
		Amount:      m.Amount,
		Description: m.Description,
		Timestamp:   m.Timestamp,
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
