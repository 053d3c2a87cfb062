package http

import (
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
	"jizhang/internal/services"
)

type (
	messageResponse struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"`
		ExpenseID *string   `json:"expense_id,omitempty"`
	}

	expenseResponse struct {
		ID          string          `json:"id"`
		Category    string          `json:"category"`
		Icon        core.Icon       `json:"icon"`
		Amount      decimal.Decimal `json:"amount"`
		Display     string          `json:"display_amount"`
		Description string          `json:"description"`
		Timestamp   time.Time       `json:"timestamp"`
	}

	chatResponse struct {
		Outcome  string            `json:"outcome"`
		Reason   string            `json:"reason,omitempty"`
		Expense  *expenseResponse  `json:"expense,omitempty"`
		Messages []messageResponse `json:"messages"`
	}

	categoryStatResponse struct {
		Category string          `json:"category"`
		Icon     core.Icon       `json:"icon"`
		Total    decimal.Decimal `json:"total"`
		Count    int             `json:"count"`
	}

	sliceResponse struct {
		Category     string          `json:"category"`
		Icon         core.Icon       `json:"icon"`
		Actual       decimal.Decimal `json:"actual"`
		Display      float64         `json:"display"`
		ActualShare  float64         `json:"actual_share"`
		DisplayShare float64         `json:"display_share"`
	}

	reportResponse struct {
		Period      string                 `json:"period"`
		Start       time.Time              `json:"start"`
		End         time.Time              `json:"end"`
		Total       decimal.Decimal        `json:"total"`
		RecordCount int                    `json:"record_count"`
		Empty       bool                   `json:"empty"`
		Categories  []categoryStatResponse `json:"categories"`
		Slices      []sliceResponse        `json:"slices"`
	}

	dashboardResponse struct {
		Month reportResponse `json:"month"`
		Year  reportResponse `json:"year"`
	}

	categoryDetailResponse struct {
		Period   string            `json:"period"`
		Start    time.Time         `json:"start"`
		End      time.Time         `json:"end"`
		Category string            `json:"category"`
		Icon     core.Icon         `json:"icon"`
		Total    decimal.Decimal   `json:"total"`
		Count    int               `json:"count"`
		Expenses []expenseResponse `json:"expenses"`
	}

	categoryResponse struct {
		Label string    `json:"label"`
		Icon  core.Icon `json:"icon"`
	}
)

func toMessages(msgs []core.ChatMessage) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:        m.ID,
			Text:      m.Text,
			Type:      string(m.Type),
			Timestamp: m.Timestamp,
			ExpenseID: m.ExpenseID,
		})
	}
	return out
}

func toExpense(e core.ExpenseRecord) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Category:    e.Category,
		Icon:        core.IconFor(e.Category),
		Amount:      e.Amount,
		Display:     core.FormatYuan(e.Amount),
		Description: e.Description,
		Timestamp:   e.Timestamp,
	}
}

func toExpenses(records []core.ExpenseRecord) []expenseResponse {
	out := make([]expenseResponse, 0, len(records))
	for _, e := range records {
		out = append(out, toExpense(e))
	}
	return out
}

func toChat(reply services.ChatReply) chatResponse {
	resp := chatResponse{
		Outcome:  reply.Outcome,
		Reason:   reply.Reason,
		Messages: toMessages(reply.Messages),
	}
	if reply.Expense != nil {
		e := toExpense(*reply.Expense)
		resp.Expense = &e
	}
	return resp
}

func toReport(r services.Report) reportResponse {
	resp := reportResponse{
		Period:      r.Period,
		Start:       r.Window.Start,
		End:         r.Window.End,
		Total:       r.Total,
		RecordCount: r.RecordCount,
		Empty:       r.IsEmpty(),
		Categories:  make([]categoryStatResponse, 0, len(r.Categories)),
		Slices:      make([]sliceResponse, 0, len(r.Slices)),
	}
	for _, c := range r.Categories {
		resp.Categories = append(resp.Categories, categoryStatResponse{
			Category: c.Category,
			Icon:     core.IconFor(c.Category),
			Total:    c.Total,
			Count:    c.Count,
		})
	}
	for _, sl := range r.Slices {
		resp.Slices = append(resp.Slices, sliceResponse{
			Category:     sl.Category,
			Icon:         sl.Icon,
			Actual:       sl.Actual,
			Display:      sl.Display,
			ActualShare:  sl.ActualShare,
			DisplayShare: sl.DisplayShare,
		})
	}
	return resp
}

func toCategoryDetail(d services.CategoryDetail) categoryDetailResponse {
	return categoryDetailResponse{
		Period:   d.Period,
		Start:    d.Window.Start,
		End:      d.Window.End,
		Category: d.Category,
		Icon:     d.Icon,
		Total:    d.Total,
		Count:    d.Count,
		Expenses: toExpenses(d.Expenses),
	}
}
