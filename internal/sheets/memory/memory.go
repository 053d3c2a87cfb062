// Package memory is a sheets.Mirror that keeps rows in process. The worker
// uses it when no spreadsheet is configured, so events are still validated
// and logged end to end.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"jizhang/internal/core"
	"jizhang/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.ExpenseRecord
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// AppendExpense stores the expense and returns a synthetic row reference.
// Appending an ID twice keeps a single row.
func (m *Mirror) AppendExpense(_ context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(e.ID); i >= 0 {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	m.rows = append(m.rows, e)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) RemoveExpense(_ context.Context, e core.ExpenseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(e.ID); i >= 0 {
		m.rows = slices.Delete(m.rows, i, i+1)
	}
	return nil
}

// Rows returns a copy of the mirrored expenses in append order.
func (m *Mirror) Rows() []core.ExpenseRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}

func (m *Mirror) indexLocked(id string) int {
	return slices.IndexFunc(m.rows, func(r core.ExpenseRecord) bool { return r.ID == id })
}
