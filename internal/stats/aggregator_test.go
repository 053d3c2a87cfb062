package stats

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
)

// fakeQuerier returns its records filtered by the requested range.
type fakeQuerier struct {
	records []core.ExpenseRecord
	err     error
	calls   int
}

func (f *fakeQuerier) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]core.ExpenseRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []core.ExpenseRecord
	for _, r := range f.records {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func rec(category, amount string, offset time.Duration) core.ExpenseRecord {
	return core.NewExpenseRecord(category, decimal.RequireFromString(amount), "", base.Add(offset))
}

func juneWindow() core.TimeWindow {
	return core.TimeWindow{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC),
	}
}

func TestSummarize_GroupsAndOrders(t *testing.T) {
	records := []core.ExpenseRecord{
		rec("餐饮", "35", 0),
		rec("交通", "20", time.Hour),
		rec("餐饮", "15.5", 2*time.Hour),
		rec("购物", "50.5", 3*time.Hour),
		rec("娱乐", "20", 4*time.Hour),
	}

	s := Summarize(records, juneWindow())

	want := []struct {
		category string
		total    string
		count    int
	}{
		{"购物", "50.5", 1},
		{"餐饮", "50.5", 2},
		{"交通", "20", 1},
		{"娱乐", "20", 1},
	}
	if len(s.Stats) != len(want) {
		t.Fatalf("got %d groups, want %d: %+v", len(s.Stats), len(want), s.Stats)
	}
	for i, w := range want {
		got := s.Stats[i]
		if got.Category != w.category || !got.Total.Equal(decimal.RequireFromString(w.total)) || got.Count != w.count {
			t.Errorf("stats[%d] = %+v, want %+v", i, got, w)
		}
	}
	if !s.Total.Equal(decimal.RequireFromString("141")) {
		t.Errorf("total = %s, want 141", s.Total)
	}
	if s.RecordCount() != 5 {
		t.Errorf("record count = %d, want 5", s.RecordCount())
	}
}

func TestSummarize_WindowIsClosed(t *testing.T) {
	w := core.TimeWindow{Start: base, End: base.Add(time.Hour)}
	records := []core.ExpenseRecord{
		rec("餐饮", "1", -time.Nanosecond),
		rec("餐饮", "2", 0),
		rec("餐饮", "4", time.Hour),
		rec("餐饮", "8", time.Hour+time.Nanosecond),
	}

	s := Summarize(records, w)
	if !s.Total.Equal(decimal.NewFromInt(6)) {
		t.Errorf("total = %s, want 6 (bounds included, outside excluded)", s.Total)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, juneWindow())
	if !s.IsEmpty() || !s.Total.IsZero() || len(s.Stats) != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
}

func TestSummarize_TotalEqualsSumOfGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	categories := append([]string{"未知"}, core.Categories...)

	for round := 0; round < 20; round++ {
		n := rng.Intn(200)
		records := make([]core.ExpenseRecord, 0, n)
		for i := 0; i < n; i++ {
			cents := rng.Int63n(100000) + 1
			amount := decimal.New(cents, -2)
			ts := base.Add(time.Duration(rng.Intn(60*24)) * time.Minute)
			records = append(records, core.NewExpenseRecord(categories[rng.Intn(len(categories))], amount, "", ts))
		}

		s := Summarize(records, juneWindow())

		sum := decimal.Zero
		count := 0
		for _, st := range s.Stats {
			sum = sum.Add(st.Total)
			count += st.Count
		}
		if !sum.Equal(s.Total) {
			t.Fatalf("round %d: sum of groups %s != total %s", round, sum, s.Total)
		}
		if count != n {
			t.Fatalf("round %d: grouped %d records, want %d", round, count, n)
		}
		for i := 1; i < len(s.Stats); i++ {
			prev, cur := s.Stats[i-1], s.Stats[i]
			if prev.Total.LessThan(cur.Total) || (prev.Total.Equal(cur.Total) && prev.Category > cur.Category) {
				t.Fatalf("round %d: stats not ordered at %d: %+v, %+v", round, i, prev, cur)
			}
		}
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	q := &fakeQuerier{records: []core.ExpenseRecord{
		rec("餐饮", "35", 0),
		rec("交通", "20", 24*time.Hour),
		rec("餐饮", "10", 45*24*time.Hour),
	}}
	agg := NewAggregator(q)

	s, err := agg.Aggregate(context.Background(), juneWindow())
	if err != nil {
		t.Fatal(err)
	}
	if !s.Total.Equal(decimal.NewFromInt(55)) {
		t.Errorf("total = %s, want 55", s.Total)
	}
	if len(s.Stats) != 2 || s.Stats[0].Category != "餐饮" {
		t.Errorf("unexpected stats %+v", s.Stats)
	}

	again, err := agg.Aggregate(context.Background(), juneWindow())
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(again) != fmt.Sprint(s) {
		t.Error("repeated aggregation over the same data must be identical")
	}
}

func TestAggregator_Errors(t *testing.T) {
	storeErr := errors.New("disk on fire")
	agg := NewAggregator(&fakeQuerier{err: storeErr})
	if _, err := agg.Aggregate(context.Background(), juneWindow()); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	inverted := core.TimeWindow{Start: base, End: base.Add(-time.Hour)}
	if _, err := NewAggregator(&fakeQuerier{}).Aggregate(context.Background(), inverted); !errors.Is(err, core.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestCategoryRecords(t *testing.T) {
	records := []core.ExpenseRecord{
		rec("餐饮", "10", 0),
		rec("交通", "5", time.Hour),
		rec("餐饮", "20", 2*time.Hour),
		rec("餐饮", "99", -48*time.Hour),
	}

	got := CategoryRecords(records, juneWindow(), "餐饮")
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(20)) || !got[1].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected newest first, got %s then %s", got[0].Amount, got[1].Amount)
	}

	if got := CategoryRecords(records, juneWindow(), "医疗"); got == nil || len(got) != 0 {
		t.Errorf("unknown category should give an empty slice, got %#v", got)
	}
}
