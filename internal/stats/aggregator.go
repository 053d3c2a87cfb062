// Package stats computes per-category totals over a time window and turns
// them into chart-ready display values.
//
// Everything except CachedAggregator is pure: the same records always give
// the same output, with no clock reads and no randomness.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
)

// RecordQuerier is the read side of the expense store used for statistics.
type RecordQuerier interface {
	QueryByTimeRange(ctx context.Context, start, end time.Time) ([]core.ExpenseRecord, error)
}

// SummaryReader is implemented by Aggregator and CachedAggregator.
type SummaryReader interface {
	Aggregate(ctx context.Context, w core.TimeWindow) (Summary, error)
}

// Summary holds the per-category statistics of a window and its grand total.
type Summary struct {
	Window core.TimeWindow
	Stats  []core.CategoryStatistic
	Total  decimal.Decimal
}

// RecordCount returns the number of records that contributed to the summary.
func (s Summary) RecordCount() int {
	n := 0
	for _, st := range s.Stats {
		n += st.Count
	}
	return n
}

// IsEmpty reports whether the window holds no spending.
func (s Summary) IsEmpty() bool {
	return len(s.Stats) == 0 || !s.Total.IsPositive()
}

// Summarize groups the records that fall inside w by category. The grand
// total is accumulated separately from the groups and always equals their
// sum. Stats are ordered by total descending, then category ascending.
func Summarize(records []core.ExpenseRecord, w core.TimeWindow) Summary {
	groups := make(map[string]*core.CategoryStatistic)
	total := decimal.Zero

	for _, r := range records {
		if !w.Contains(r.Timestamp) {
			continue
		}
		total = total.Add(r.Amount)

		g, ok := groups[r.Category]
		if !ok {
			g = &core.CategoryStatistic{Category: r.Category, Total: decimal.Zero}
			groups[r.Category] = g
		}
		g.Total = g.Total.Add(r.Amount)
		g.Count++
	}

	out := make([]core.CategoryStatistic, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sortStatistics(out)

	return Summary{Window: w, Stats: out, Total: total}
}

func sortStatistics(s []core.CategoryStatistic) {
	slices.SortFunc(s, func(a, b core.CategoryStatistic) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
}

// Aggregator reads records from the store and summarizes them.
type Aggregator struct {
	store RecordQuerier
}

func NewAggregator(store RecordQuerier) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) Aggregate(ctx context.Context, w core.TimeWindow) (Summary, error) {
	if w.Start.After(w.End) {
		return Summary{}, core.ErrInvalidWindow
	}
	records, err := a.store.QueryByTimeRange(ctx, w.Start, w.End)
	if err != nil {
		return Summary{}, fmt.Errorf("query records: %w", err)
	}
	return Summarize(records, w), nil
}

// CategoryRecords returns the records of category that fall inside w,
// newest first.
func CategoryRecords(records []core.ExpenseRecord, w core.TimeWindow, category string) []core.ExpenseRecord {
	out := []core.ExpenseRecord{}
	for _, r := range records {
		if r.Category == category && w.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b core.ExpenseRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}
