package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/amqp"
	"jizhang/internal/core"
	"jizhang/internal/log"
	"jizhang/internal/sheets/memory"
)

type failingMirror struct{ err error }

func (f failingMirror) AppendExpense(context.Context, core.ExpenseRecord) (string, error) {
	return "", f.err
}

func (f failingMirror) RemoveExpense(context.Context, core.ExpenseRecord) error {
	return f.err
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

func record() core.ExpenseRecord {
	return core.NewExpenseRecord("交通", decimal.RequireFromString("20"), "打车20", time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
}

func TestMirrorWorker_CreateThenDelete(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror, quietLogger())
	ctx := context.Background()
	e := record()

	if err := w.HandleEvent(ctx, amqp.NewExpenseCreatedMessage(e)); err != nil {
		t.Fatal(err)
	}
	rows := mirror.Rows()
	if len(rows) != 1 || rows[0].ID != e.ID || !rows[0].Amount.Equal(e.Amount) {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if err := w.HandleEvent(ctx, amqp.NewExpenseDeletedMessage(e)); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatal("row should be removed")
	}

	if s := w.Stats(); s.Appended != 1 || s.Removed != 1 || s.Failed != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestMirrorWorker_Failures(t *testing.T) {
	mirrorErr := errors.New("quota exceeded")
	w := NewMirrorWorker(failingMirror{err: mirrorErr}, quietLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *amqp.ExpenseEventMessage
	}{
		{"create", amqp.NewExpenseCreatedMessage(record())},
		{"delete", amqp.NewExpenseDeletedMessage(record())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleEvent(ctx, tt.msg); !errors.Is(err, mirrorErr) {
				t.Errorf("expected wrapped mirror error, got %v", err)
			}
		})
	}

	unknown := amqp.NewExpenseCreatedMessage(record())
	unknown.Type = "updated"
	if err := w.HandleEvent(ctx, unknown); err == nil {
		t.Error("expected error for unknown event type")
	}

	if s := w.Stats(); s.Failed != 3 {
		t.Errorf("failed = %d, want 3", s.Failed)
	}
}
