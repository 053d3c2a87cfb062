// Package memory is an in-process ports.Store used for development and tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/ports"
)

type Store struct {
	mu       sync.Mutex
	expenses []core.ExpenseRecord
	messages []core.ChatMessage
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) InsertExpense(_ context.Context, e core.ExpenseRecord, messageIDs ...string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := make([]int, 0, len(messageIDs))
	for _, id := range messageIDs {
		i := slices.IndexFunc(s.messages, func(m core.ChatMessage) bool { return m.ID == id })
		if i < 0 {
			return fmt.Errorf("link message %s: %w", id, ports.ErrNotFound)
		}
		idx = append(idx, i)
	}
	s.expenses = append(s.expenses, e)
	for _, i := range idx {
		expenseID := e.ID
		s.messages[i].ExpenseID = &expenseID
	}
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.ExpenseRecord{}, ports.ErrNotFound
}

func (s *Store) QueryByTimeRange(_ context.Context, start, end time.Time) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.ExpenseRecord{}
	for _, e := range s.expenses {
		if !e.Timestamp.Before(start) && !e.Timestamp.After(end) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b core.ExpenseRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *Store) RecentExpenses(_ context.Context, limit int) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		return []core.ExpenseRecord{}, nil
	}
	// Newest first; later inserts win ties.
	out := slices.Clone(s.expenses)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b core.ExpenseRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.expenses, func(e core.ExpenseRecord) bool { return e.ID == id })
	if i < 0 {
		return ports.ErrNotFound
	}
	s.expenses = slices.Delete(s.expenses, i, i+1)
	s.messages = slices.DeleteFunc(s.messages, func(m core.ChatMessage) bool {
		return m.ExpenseID != nil && *m.ExpenseID == id
	})
	return nil
}

func (s *Store) DeleteAllExpenses(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.expenses
	if removed == nil {
		removed = []core.ExpenseRecord{}
	}
	s.expenses = nil
	s.messages = nil
	return removed, nil
}

func (s *Store) CountExpenses(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expenses), nil
}

func (s *Store) InsertMessage(_ context.Context, m core.ChatMessage) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Kept sorted by timestamp; equal timestamps stay in insertion order.
	i := len(s.messages)
	for i > 0 && s.messages[i-1].Timestamp.After(m.Timestamp) {
		i--
	}
	s.messages = slices.Insert(s.messages, i, m)
	return nil
}

func (s *Store) RecentMessages(_ context.Context, limit int) ([]core.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		return []core.ChatMessage{}, nil
	}
	from := max(len(s.messages)-limit, 0)
	return slices.Clone(s.messages[from:]), nil
}

func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.messages, func(m core.ChatMessage) bool { return m.ID == id })
	if i < 0 {
		return ports.ErrNotFound
	}
	s.messages = slices.Delete(s.messages, i, i+1)
	return nil
}

func (s *Store) DeleteAllMessages(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

func (s *Store) TrimMessages(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep = max(keep, 0)
	removed := len(s.messages) - keep
	if removed <= 0 {
		return 0, nil
	}
	s.messages = slices.Clone(s.messages[removed:])
	return removed, nil
}

func (s *Store) CountMessages(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
