package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"jizhang/internal/amqp"
	"jizhang/internal/log"
	"jizhang/internal/sheets"
)

// MirrorWorker applies expense events to a sheets.Mirror.
type MirrorWorker struct {
	mirror sheets.Mirror
	logger *log.Logger

	appended atomic.Int64
	removed  atomic.Int64
	failed   atomic.Int64
}

func NewMirrorWorker(mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is the AMQP consumer callback. A returned error requeues the
// message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	record := msg.Record()
	fields := log.NewFields().
		WithExpense(record.ID, record.Category, record.Amount).
		WithOperation(log.OpMirror)
	fields[log.FieldEventType] = string(msg.Type)

	switch msg.Type {
	case amqp.EventExpenseCreated:
		ref, err := w.mirror.AppendExpense(ctx, record)
		if err != nil {
			w.failed.Add(1)
			return fmt.Errorf("append expense %s: %w", record.ID, err)
		}
		w.appended.Add(1)
		fields[log.FieldSheetsRef] = ref
		w.logger.InfoContext(ctx, "Expense mirrored", fields.ToSlice()...)

	case amqp.EventExpenseDeleted:
		if err := w.mirror.RemoveExpense(ctx, record); err != nil {
			w.failed.Add(1)
			return fmt.Errorf("remove expense %s: %w", record.ID, err)
		}
		w.removed.Add(1)
		w.logger.InfoContext(ctx, "Expense removed from mirror", fields.ToSlice()...)

	default:
		w.failed.Add(1)
		return fmt.Errorf("unsupported event type %q", msg.Type)
	}
	return nil
}

// Stats reports how many events were applied and how many failed.
type Stats struct {
	Appended int64
	Removed  int64
	Failed   int64
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{
		Appended: w.appended.Load(),
		Removed:  w.removed.Load(),
		Failed:   w.failed.Load(),
	}
}
