package ports

import (
	"context"
	"errors"
	"time"

	"jizhang/internal/core"
)

var ErrNotFound = errors.New("not found")

// Ports for the persistence adapters.
type (
	ExpenseStore interface {
		// InsertExpense stores e and, atomically with it, links the messages
		// with the given ids to it. An unknown message id is ErrNotFound and
		// nothing is stored.
		InsertExpense(ctx context.Context, e core.ExpenseRecord, messageIDs ...string) error
		// GetExpense returns ErrNotFound for an unknown id.
		GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
		// QueryByTimeRange returns the records with start <= timestamp <= end,
		// oldest first.
		QueryByTimeRange(ctx context.Context, start, end time.Time) ([]core.ExpenseRecord, error)
		// RecentExpenses returns at most limit records, newest first.
		RecentExpenses(ctx context.Context, limit int) ([]core.ExpenseRecord, error)
		// DeleteExpense removes the record and every message linked to it.
		DeleteExpense(ctx context.Context, id string) error
		// DeleteAllExpenses removes every record and every message and returns
		// the records that were removed.
		DeleteAllExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
		CountExpenses(ctx context.Context) (int, error)
	}

	MessageStore interface {
		InsertMessage(ctx context.Context, m core.ChatMessage) error
		// RecentMessages returns at most limit messages in chronological order.
		RecentMessages(ctx context.Context, limit int) ([]core.ChatMessage, error)
		DeleteMessage(ctx context.Context, id string) error
		DeleteAllMessages(ctx context.Context) error
		// TrimMessages keeps the newest keep messages and reports how many were removed.
		TrimMessages(ctx context.Context, keep int) (int, error)
		CountMessages(ctx context.Context) (int, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		ExpenseStore
		MessageStore
		Ping(ctx context.Context) error
		Close() error
	}
)
