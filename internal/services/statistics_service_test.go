package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/cache"
	"jizhang/internal/core"
	"jizhang/internal/stats"
	"jizhang/internal/storage/memory"
)

var statsNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func seedStore(t *testing.T, records ...core.ExpenseRecord) *memory.Store {
	t.Helper()
	store := memory.New()
	for _, r := range records {
		if err := store.InsertExpense(context.Background(), r); err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
	}
	return store
}

func expense(category string, amount int64, ts time.Time) core.ExpenseRecord {
	return core.NewExpenseRecord(category, decimal.NewFromInt(amount), category, ts)
}

func newStatsService(t *testing.T, reader stats.SummaryReader, records stats.RecordQuerier) *StatisticsService {
	t.Helper()
	return NewStatisticsService(reader, records, stats.DefaultOptions(), func() time.Time { return statsNow }, testLogger())
}

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name      string
		period    string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   error
	}{
		{
			name:      "default is month",
			wantStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   statsNow,
		},
		{
			name:      "month",
			period:    PeriodMonth,
			wantStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   statsNow,
		},
		{
			name:      "year to date",
			period:    PeriodYear,
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   statsNow,
		},
		{
			name:      "range includes both days",
			period:    PeriodRange,
			from:      "2025-03-01",
			to:        "2025-03-31",
			wantStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{name: "unknown period", period: "week", wantErr: ErrInvalidPeriod},
		{name: "bad from", period: PeriodRange, from: "03/01/2025", to: "2025-03-31", wantErr: ErrInvalidPeriod},
		{name: "missing to", period: PeriodRange, from: "2025-03-01", wantErr: ErrInvalidPeriod},
		{name: "reversed range", period: PeriodRange, from: "2025-04-01", to: "2025-03-01", wantErr: core.ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.period, tt.from, tt.to, statsNow)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !w.Start.Equal(tt.wantStart) || !w.End.Equal(tt.wantEnd) {
				t.Errorf("window = [%v, %v], want [%v, %v]", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestStatisticsService_Report(t *testing.T) {
	store := seedStore(t,
		expense("餐饮", 300, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)),
		expense("交通", 100, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)),
		expense("住房", 1000, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)),
	)
	svc := newStatsService(t, stats.NewAggregator(store), store)

	r, err := svc.Report(context.Background(), PeriodMonth, "", "")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !r.Total.Equal(decimal.NewFromInt(400)) {
		t.Errorf("total = %s, want 400", r.Total)
	}
	if r.RecordCount != 2 {
		t.Errorf("record count = %d, want 2", r.RecordCount)
	}
	if len(r.Slices) != 2 {
		t.Fatalf("slices = %+v", r.Slices)
	}

	first := r.Slices[0]
	if first.Category != "餐饮" || first.Icon != core.IconFood {
		t.Errorf("first slice = %+v", first)
	}
	if math.Abs(first.ActualShare-0.75) > 1e-9 || math.Abs(first.DisplayShare-0.75) > 1e-9 {
		t.Errorf("shares = %v / %v, want 0.75", first.ActualShare, first.DisplayShare)
	}
	if r.Slices[1].Icon != core.IconTransport {
		t.Errorf("second icon = %q", r.Slices[1].Icon)
	}

	year, err := svc.Report(context.Background(), PeriodYear, "", "")
	if err != nil {
		t.Fatalf("Report year: %v", err)
	}
	if !year.Total.Equal(decimal.NewFromInt(1400)) || year.Slices[0].Category != "住房" {
		t.Errorf("year report = %+v", year)
	}
}

func TestStatisticsService_ReportEmpty(t *testing.T) {
	svc := newStatsService(t, stats.NewAggregator(memory.New()), memory.New())

	r, err := svc.Report(context.Background(), PeriodMonth, "", "")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !r.IsEmpty() || !r.Total.IsZero() || r.RecordCount != 0 {
		t.Errorf("report = %+v, want empty", r)
	}
	if r.Slices == nil {
		t.Error("slices should be empty, not nil")
	}
}

func TestStatisticsService_ReportMergesLongTail(t *testing.T) {
	ts := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	store := seedStore(t,
		expense("住房", 9000, ts),
		expense("餐饮", 500, ts),
		expense("宠物", 200, ts),
		expense("水果", 150, ts),
		expense("零食", 150, ts),
	)
	svc := newStatsService(t, stats.NewAggregator(store), store)

	r, err := svc.Report(context.Background(), PeriodMonth, "", "")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	last := r.Slices[len(r.Slices)-1]
	if last.Category != core.CategoryOther || last.Icon != core.IconOther {
		t.Fatalf("last slice = %+v, want merged bucket", last)
	}
	if !last.Actual.Equal(decimal.NewFromInt(500)) {
		t.Errorf("merged actual = %s, want 500", last.Actual)
	}

	actual := decimal.Zero
	display := 0.0
	for _, s := range r.Slices {
		actual = actual.Add(s.Actual)
		display += s.DisplayShare
		if s.Display < 600-1e-6 {
			t.Errorf("%s display %v below the floor", s.Category, s.Display)
		}
	}
	if !actual.Equal(r.Total) {
		t.Errorf("sum of actuals = %s, want %s", actual, r.Total)
	}
	if math.Abs(display-1) > 1e-9 {
		t.Errorf("display shares sum to %v, want 1", display)
	}
}

type failingReader struct{ err error }

func (f failingReader) Aggregate(context.Context, core.TimeWindow) (stats.Summary, error) {
	return stats.Summary{}, f.err
}

func TestStatisticsService_Dashboard(t *testing.T) {
	store := seedStore(t,
		expense("餐饮", 50, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		expense("旅行", 800, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)),
		expense("旅行", 999, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)),
	)
	svc := newStatsService(t, stats.NewAggregator(store), store)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Month.Period != PeriodMonth || !d.Month.Total.Equal(decimal.NewFromInt(50)) {
		t.Errorf("month = %+v", d.Month)
	}
	if d.Year.Period != PeriodYear || !d.Year.Total.Equal(decimal.NewFromInt(850)) {
		t.Errorf("year = %+v", d.Year)
	}

	boom := errors.New("store offline")
	failing := newStatsService(t, failingReader{err: boom}, memory.New())
	if _, err := failing.Dashboard(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Dashboard error = %v, want wrapped %v", err, boom)
	}
}

// queryCounter counts range queries against the wrapped store.
type queryCounter struct {
	*memory.Store
	mu    sync.Mutex
	calls int
}

func (q *queryCounter) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]core.ExpenseRecord, error) {
	q.mu.Lock()
	q.calls++
	q.mu.Unlock()
	return q.Store.QueryByTimeRange(ctx, start, end)
}

func TestStatisticsService_CachedReportsWithWallClock(t *testing.T) {
	store := &queryCounter{Store: seedStore(t, expense("餐饮", 30, time.Now()))}
	cached := stats.NewCachedAggregator(store, cache.NewLRUCache[[]core.ExpenseRecord](16, time.Minute))
	svc := NewStatisticsService(cached, store, stats.DefaultOptions(), time.Now, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r, err := svc.Report(ctx, PeriodMonth, "", "")
		if err != nil {
			t.Fatalf("Report: %v", err)
		}
		if !r.Total.Equal(decimal.NewFromInt(30)) {
			t.Fatalf("total = %s, want 30", r.Total)
		}
	}
	if _, err := svc.Dashboard(ctx); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	store.mu.Lock()
	calls := store.calls
	store.mu.Unlock()
	// One load for the month, one for the year.
	if calls > 2 {
		t.Errorf("store queried %d times, want at most 2", calls)
	}
}

func TestStatisticsService_CategoryDetail(t *testing.T) {
	store := seedStore(t,
		expense("餐饮", 30, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)),
		expense("餐饮", 45, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)),
		expense("餐饮", 25, time.Date(2025, 6, 14, 19, 0, 0, 0, time.UTC)),
		expense("交通", 20, time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)),
		expense("餐饮", 99, time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)),
	)
	svc := newStatsService(t, stats.NewAggregator(store), store)
	ctx := context.Background()

	tests := []struct {
		name       string
		category   string
		period     string
		limit      int
		wantTotal  int64
		wantCount  int
		wantListed int
		wantErr    error
	}{
		{name: "month", category: "餐饮", wantTotal: 100, wantCount: 3, wantListed: 3},
		{name: "limit keeps the newest", category: "餐饮", limit: 2, wantTotal: 100, wantCount: 3, wantListed: 2},
		{name: "year includes earlier months", category: "餐饮", period: PeriodYear, wantTotal: 199, wantCount: 4, wantListed: 4},
		{name: "no spending", category: "医疗", wantTotal: 0, wantCount: 0, wantListed: 0},
		{name: "empty category", category: " ", wantErr: core.ErrEmptyCategory},
		{name: "bad period", category: "餐饮", period: "week", wantErr: ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := svc.CategoryDetail(ctx, tt.category, tt.period, "", "", tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CategoryDetail: %v", err)
			}
			if !d.Total.Equal(decimal.NewFromInt(tt.wantTotal)) || d.Count != tt.wantCount || len(d.Expenses) != tt.wantListed {
				t.Errorf("detail = total %s count %d listed %d", d.Total, d.Count, len(d.Expenses))
			}
			if len(d.Expenses) > 0 && !d.Expenses[0].Amount.Equal(decimal.NewFromInt(25)) {
				t.Errorf("newest expense = %s, want 25", d.Expenses[0].Amount)
			}
		})
	}
}
