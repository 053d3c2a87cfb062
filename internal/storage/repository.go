package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
	"jizhang/internal/ports"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn inside a transaction and rolls back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// InsertExpense stores e and links the given messages to it in one
// transaction. An unknown message id rolls the insert back with ErrNotFound.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.ExpenseRecord, messageIDs ...string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	err := r.withTx(ctx, func(q *Queries) error {
		err := q.CreateExpense(ctx, CreateExpenseParams{
			ID:          e.ID,
			Category:    e.Category,
			Amount:      e.Amount.String(),
			Description: e.Description,
			CreatedAt:   e.Timestamp.UnixMilli(),
		})
		if err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		for _, id := range messageIDs {
			n, err := q.LinkMessage(ctx, LinkMessageParams{ExpenseID: e.ID, ID: id})
			if err != nil {
				return fmt.Errorf("link message %s: %w", id, err)
			}
			if n == 0 {
				return fmt.Errorf("link message %s: %w", id, ports.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"category", e.Category,
		"amount", e.Amount.String(),
		"linked_messages", len(messageIDs))
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, ports.ErrNotFound
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return expenseFromRow(row)
}

func (r *SQLiteRepository) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.GetExpensesInRange(ctx, GetExpensesInRangeParams{
		Start: start.UnixMilli(),
		End:   end.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("get expenses in range: %w", err)
	}
	return expensesFromRows(rows)
}

func (r *SQLiteRepository) RecentExpenses(ctx context.Context, limit int) ([]core.ExpenseRecord, error) {
	if limit <= 0 {
		return []core.ExpenseRecord{}, nil
	}
	rows, err := r.queries.GetRecentExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get recent expenses: %w", err)
	}
	return expensesFromRows(rows)
}

// DeleteExpense removes the expense and its linked messages atomically.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	var removedMessages int64
	err := r.withTx(ctx, func(q *Queries) error {
		n, err := q.DeleteExpense(ctx, id)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if n == 0 {
			return ports.ErrNotFound
		}
		removedMessages, err = q.DeleteMessagesByExpense(ctx, id)
		if err != nil {
			return fmt.Errorf("delete linked messages: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted",
		"id", id,
		"linked_messages", removedMessages)
	return nil
}

// DeleteAllExpenses removes every expense and message and returns the
// expenses that were removed, read inside the same transaction.
func (r *SQLiteRepository) DeleteAllExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	var removed []Expense
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		if removed, err = q.ListExpenses(ctx); err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		if err := q.DeleteAllMessages(ctx); err != nil {
			return fmt.Errorf("delete all messages: %w", err)
		}
		if err := q.DeleteAllExpenses(ctx); err != nil {
			return fmt.Errorf("delete all expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expensesFromRows(removed)
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context) (int, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) InsertMessage(ctx context.Context, m core.ChatMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	var expenseID sql.NullString
	if m.ExpenseID != nil {
		expenseID = sql.NullString{String: *m.ExpenseID, Valid: true}
	}
	err := r.queries.CreateMessage(ctx, CreateMessageParams{
		ID:        m.ID,
		Text:      m.Text,
		Type:      string(m.Type),
		ExpenseID: expenseID,
		CreatedAt: m.Timestamp.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecentMessages(ctx context.Context, limit int) ([]core.ChatMessage, error) {
	if limit <= 0 {
		return []core.ChatMessage{}, nil
	}
	rows, err := r.queries.GetRecentMessages(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get recent messages: %w", err)
	}

	out := make([]core.ChatMessage, 0, len(rows))
	for _, row := range rows {
		m := core.ChatMessage{
			ID:        row.ID,
			Text:      row.Text,
			Type:      core.MessageType(row.Type),
			Timestamp: time.UnixMilli(row.CreatedAt),
		}
		if row.ExpenseID.Valid {
			id := row.ExpenseID.String
			m.ExpenseID = &id
		}
		out = append(out, m)
	}
	slices.Reverse(out)
	return out, nil
}

func (r *SQLiteRepository) DeleteMessage(ctx context.Context, id string) error {
	n, err := r.queries.DeleteMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllMessages(ctx context.Context) error {
	if err := r.queries.DeleteAllMessages(ctx); err != nil {
		return fmt.Errorf("delete all messages: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) TrimMessages(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	n, err := r.queries.TrimMessages(ctx, int64(keep))
	if err != nil {
		return 0, fmt.Errorf("trim messages: %w", err)
	}
	if n > 0 {
		slog.DebugContext(ctx, "Chat history trimmed", "removed", n, "kept", keep)
	}
	return int(n), nil
}

func (r *SQLiteRepository) CountMessages(ctx context.Context) (int, error) {
	n, err := r.queries.CountMessages(ctx)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return int(n), nil
}

func expenseFromRow(row Expense) (core.ExpenseRecord, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse amount of expense %s: %w", row.ID, err)
	}
	return core.ExpenseRecord{
		ID:          row.ID,
		Category:    row.Category,
		Amount:      amount,
		Description: row.Description,
		Timestamp:   time.UnixMilli(row.CreatedAt),
	}, nil
}

func expensesFromRows(rows []Expense) ([]core.ExpenseRecord, error) {
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
