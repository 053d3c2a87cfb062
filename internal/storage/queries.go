package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row models.

type Expense struct {
	ID          string
	Category    string
	Amount      string
	Description string
	CreatedAt   int64
}

type ChatMessage struct {
	ID        string
	Text      string
	Type      string
	ExpenseID sql.NullString
	CreatedAt int64
}

const createExpense = `-- name: CreateExpense :exec
INSERT INTO expenses (id, category, amount, description, created_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID          string
	Category    string
	Amount      string
	Description string
	CreatedAt   int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.Category,
		arg.Amount,
		arg.Description,
		arg.CreatedAt,
	)
	return err
}

const getExpense = `-- name: GetExpense :one
SELECT id, category, amount, description, created_at FROM expenses
WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Category,
		&i.Amount,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const getExpensesInRange = `-- name: GetExpensesInRange :many
SELECT id, category, amount, description, created_at FROM expenses
WHERE created_at >= ? AND created_at <= ?
ORDER BY created_at ASC, rowid ASC
`

type GetExpensesInRangeParams struct {
	Start int64
	End   int64
}

func (q *Queries) GetExpensesInRange(ctx context.Context, arg GetExpensesInRangeParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getExpensesInRange, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

const getRecentExpenses = `-- name: GetRecentExpenses :many
SELECT id, category, amount, description, created_at FROM expenses
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

func (q *Queries) GetRecentExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getRecentExpenses, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.Category,
			&i.Amount,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listExpenses = `-- name: ListExpenses :many
SELECT id, category, amount, description, created_at FROM expenses
ORDER BY created_at ASC, rowid ASC
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExpenses(rows)
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllExpenses = `-- name: DeleteAllExpenses :exec
DELETE FROM expenses
`

func (q *Queries) DeleteAllExpenses(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllExpenses)
	return err
}

const countExpenses = `-- name: CountExpenses :one
SELECT COUNT(*) FROM expenses
`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createMessage = `-- name: CreateMessage :exec
INSERT INTO chat_messages (id, text, type, expense_id, created_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateMessageParams struct {
	ID        string
	Text      string
	Type      string
	ExpenseID sql.NullString
	CreatedAt int64
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) error {
	_, err := q.db.ExecContext(ctx, createMessage,
		arg.ID,
		arg.Text,
		arg.Type,
		arg.ExpenseID,
		arg.CreatedAt,
	)
	return err
}

// Newest first; callers reverse for display.
const getRecentMessages = `-- name: GetRecentMessages :many
SELECT id, text, type, expense_id, created_at FROM chat_messages
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

func (q *Queries) GetRecentMessages(ctx context.Context, limit int64) ([]ChatMessage, error) {
	rows, err := q.db.QueryContext(ctx, getRecentMessages, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChatMessage
	for rows.Next() {
		var i ChatMessage
		if err := rows.Scan(
			&i.ID,
			&i.Text,
			&i.Type,
			&i.ExpenseID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const linkMessage = `-- name: LinkMessage :execrows
UPDATE chat_messages SET expense_id = ? WHERE id = ?
`

type LinkMessageParams struct {
	ExpenseID string
	ID        string
}

func (q *Queries) LinkMessage(ctx context.Context, arg LinkMessageParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, linkMessage, arg.ExpenseID, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteMessage = `-- name: DeleteMessage :execrows
DELETE FROM chat_messages WHERE id = ?
`

func (q *Queries) DeleteMessage(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMessage, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteMessagesByExpense = `-- name: DeleteMessagesByExpense :execrows
DELETE FROM chat_messages WHERE expense_id = ?
`

func (q *Queries) DeleteMessagesByExpense(ctx context.Context, expenseID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteMessagesByExpense, expenseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllMessages = `-- name: DeleteAllMessages :exec
DELETE FROM chat_messages
`

func (q *Queries) DeleteAllMessages(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllMessages)
	return err
}

const trimMessages = `-- name: TrimMessages :execrows
DELETE FROM chat_messages
WHERE rowid NOT IN (
    SELECT rowid FROM chat_messages
    ORDER BY created_at DESC, rowid DESC
    LIMIT ?
)
`

func (q *Queries) TrimMessages(ctx context.Context, keep int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, trimMessages, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countMessages = `-- name: CountMessages :one
SELECT COUNT(*) FROM chat_messages
`

func (q *Queries) CountMessages(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMessages)
	var count int64
	err := row.Scan(&count)
	return count, err
}
