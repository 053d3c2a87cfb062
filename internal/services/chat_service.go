package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jizhang/internal/amqp"
	"jizhang/internal/core"
	"jizhang/internal/extraction"
	"jizhang/internal/log"
	"jizhang/internal/ports"
)

const (
	DefaultHistoryLimit  = 300
	DefaultRecentLimit   = 10
	UnrecognizedHint     = "无法识别记账内容，请输入包含消费金额的记账信息"
	errorMessagePrefix   = "错误: "
	successMessageFormat = "记账成功：%s %s"
)

// OutcomeError marks a reply whose classification failed.
const OutcomeError = "error"

var ErrEmptyText = errors.New("text is empty")

type (
	// Classifier turns text into an extraction outcome.
	Classifier interface {
		Classify(ctx context.Context, text string) (extraction.Outcome, error)
	}

	// EventPublisher forwards expense changes to other processes.
	EventPublisher interface {
		PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error
	}

	// Invalidator drops cached statistics after a write.
	Invalidator interface {
		Invalidate()
	}
)

// ChatReply is the result of one submitted utterance.
type ChatReply struct {
	Outcome  string
	Reason   string
	Expense  *core.ExpenseRecord
	Messages []core.ChatMessage
}

// ChatService records utterances, classifies them and stores the resulting
// expenses next to the conversation log.
type ChatService struct {
	expenses    ports.ExpenseStore
	messages    ports.MessageStore
	classifier  Classifier
	publisher   EventPublisher
	invalidator Invalidator

	historyLimit int
	now          func() time.Time
	logger       *log.Logger
	structured   *log.StructuredLogger
}

type ChatOption func(*ChatService)

func WithPublisher(p EventPublisher) ChatOption {
	return func(s *ChatService) { s.publisher = p }
}

func WithInvalidator(i Invalidator) ChatOption {
	return func(s *ChatService) { s.invalidator = i }
}

func WithHistoryLimit(n int) ChatOption {
	return func(s *ChatService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) { s.now = now }
}

func WithLogger(l *log.Logger) ChatOption {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewChatService(store ports.Store, classifier Classifier, opts ...ChatOption) *ChatService {
	s := &ChatService{
		expenses:     store,
		messages:     store,
		classifier:   classifier,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		logger:       log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentChat)
	s.structured = log.NewStructuredLogger(s.logger)
	return s
}

// Submit records text as a user message, classifies it and answers with a
// system or error message. Classification failures become error messages in
// the log, not returned errors; only storage failures are returned.
func (s *ChatService) Submit(ctx context.Context, text string) (ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatReply{}, ErrEmptyText
	}

	userMsg := core.NewChatMessage(text, core.MessageUser, s.now(), nil)
	if err := s.messages.InsertMessage(ctx, userMsg); err != nil {
		return ChatReply{}, fmt.Errorf("save user message: %w", err)
	}
	reply := ChatReply{Messages: []core.ChatMessage{userMsg}}

	outcome, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.structured.LogError(ctx, "Classification failed", err, log.ComponentInference, log.OpClassify,
			log.NewFields().WithOutcome(OutcomeError, ""))
		reply.Outcome = OutcomeError
		reply.Reason = err.Error()
		if err := s.answer(ctx, &reply, errorMessagePrefix+err.Error(), core.MessageError, nil); err != nil {
			return ChatReply{}, err
		}
		return reply, s.trim(ctx)
	}

	reply.Outcome = outcome.Kind()
	switch o := outcome.(type) {
	case extraction.Valid:
		description := o.Description
		if strings.TrimSpace(description) == "" {
			description = text
		}
		record := core.NewExpenseRecord(o.Category, o.Amount, description, s.now())
		// The utterance is linked so deleting the expense removes it too.
		if err := s.expenses.InsertExpense(ctx, record, userMsg.ID); err != nil {
			return ChatReply{}, fmt.Errorf("save expense: %w", err)
		}
		reply.Messages[0].ExpenseID = &record.ID
		s.structured.LogExpenseRecorded(ctx, record.ID, record.Category, record.Amount)
		s.invalidate()
		s.publish(ctx, amqp.NewExpenseCreatedMessage(record))

		reply.Expense = &record
		text := fmt.Sprintf(successMessageFormat, record.Category, core.FormatYuan(record.Amount))
		if err := s.answer(ctx, &reply, text, core.MessageSystem, &record.ID); err != nil {
			return ChatReply{}, err
		}

	case extraction.Invalid:
		reply.Reason = o.Reason
		s.logger.InfoContext(ctx, "Utterance not recognized as an expense",
			log.FieldOutcome, o.Kind(),
			log.FieldReason, o.Reason,
			log.FieldInputLength, len([]rune(text)))
		if err := s.answer(ctx, &reply, UnrecognizedHint, core.MessageSystem, nil); err != nil {
			return ChatReply{}, err
		}

	default:
		return ChatReply{}, fmt.Errorf("unexpected outcome %q", outcome.Kind())
	}

	return reply, s.trim(ctx)
}

func (s *ChatService) answer(ctx context.Context, reply *ChatReply, text string, typ core.MessageType, expenseID *string) error {
	msg := core.NewChatMessage(text, typ, s.now(), expenseID)
	if err := s.messages.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("save reply message: %w", err)
	}
	reply.Messages = append(reply.Messages, msg)
	return nil
}

func (s *ChatService) trim(ctx context.Context) error {
	if _, err := s.messages.TrimMessages(ctx, s.historyLimit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// History returns the newest messages in chronological order, capped at the
// history limit.
func (s *ChatService) History(ctx context.Context, limit int) ([]core.ChatMessage, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	msgs, err := s.messages.RecentMessages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

func (s *ChatService) ClearHistory(ctx context.Context) error {
	if err := s.messages.DeleteAllMessages(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.logger.InfoContext(ctx, "Chat history cleared", log.FieldOperation, log.OpClear)
	return nil
}

// RecentExpenses returns the newest expenses, DefaultRecentLimit when limit
// is not positive.
func (s *ChatService) RecentExpenses(ctx context.Context, limit int) ([]core.ExpenseRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	records, err := s.expenses.RecentExpenses(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent expenses: %w", err)
	}
	return records, nil
}

// GetExpense returns one expense; ports.ErrNotFound for an unknown id.
func (s *ChatService) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	record, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return record, nil
}

// DeleteExpense removes an expense with its linked messages: the utterance
// that produced it and the confirmation.
func (s *ChatService) DeleteExpense(ctx context.Context, id string) error {
	record, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense %s: %w", id, err)
	}
	if err := s.expenses.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	s.invalidate()
	s.publish(ctx, amqp.NewExpenseDeletedMessage(record))

	s.logger.InfoContext(ctx, "Expense deleted", log.NewFields().
		WithExpense(record.ID, record.Category, record.Amount).
		WithOperation(log.OpDelete).ToSlice()...)
	return nil
}

// ClearAll deletes every expense and message. One deleted event is
// published per removed expense.
func (s *ChatService) ClearAll(ctx context.Context) error {
	removed, err := s.expenses.DeleteAllExpenses(ctx)
	if err != nil {
		return fmt.Errorf("clear all data: %w", err)
	}
	s.invalidate()
	for _, r := range removed {
		s.publish(ctx, amqp.NewExpenseDeletedMessage(r))
	}

	s.logger.InfoContext(ctx, "All data cleared", log.FieldOperation, log.OpClear, "expenses", len(removed))
	return nil
}

func (s *ChatService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

// publish never fails the caller; the mirror is best effort.
func (s *ChatService) publish(ctx context.Context, msg *amqp.ExpenseEventMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, msg); err != nil {
		s.structured.LogError(ctx, "Failed to publish expense event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithExpense(msg.ExpenseID, msg.Category, msg.Amount))
	}
}
