package sheets

import (
	"context"

	"jizhang/internal/core"
)

// Mirror keeps an external copy of the expense ledger. Mirrors are written
// from expense events, never read by the application.
type Mirror interface {
	// AppendExpense adds a row for e and returns a reference to it.
	AppendExpense(ctx context.Context, e core.ExpenseRecord) (rowRef string, err error)
	// RemoveExpense clears the row of e. A missing row is not an error.
	RemoveExpense(ctx context.Context, e core.ExpenseRecord) error
}
