package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"jizhang/internal/core"
	"jizhang/internal/log"
	"jizhang/internal/stats"
)

const (
	PeriodMonth = "month"
	PeriodYear  = "year"
	PeriodRange = "range"

	dateLayout = "2006-01-02"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Slice is one chart entry ready for a client.
type Slice struct {
	Category     string
	Icon         core.Icon
	Actual       decimal.Decimal
	Display      float64
	ActualShare  float64
	DisplayShare float64
}

// Report is the statistics view of one window.
type Report struct {
	Period      string
	Window      core.TimeWindow
	Total       decimal.Decimal
	RecordCount int
	Categories  []core.CategoryStatistic
	Slices      []Slice
}

// IsEmpty reports whether the window has no spending to draw.
func (r Report) IsEmpty() bool {
	return len(r.Slices) == 0
}

type Dashboard struct {
	Month Report
	Year  Report
}

// CategoryDetail lists the spending of one category inside a window.
type CategoryDetail struct {
	Period   string
	Window   core.TimeWindow
	Category string
	Icon     core.Icon
	Total    decimal.Decimal
	Count    int
	// Expenses holds the newest records, at most the requested limit.
	Expenses []core.ExpenseRecord
}

type StatisticsService struct {
	reader  stats.SummaryReader
	records stats.RecordQuerier
	options stats.Options
	now     func() time.Time
	logger  *log.Logger
}

func NewStatisticsService(reader stats.SummaryReader, records stats.RecordQuerier, options stats.Options, now func() time.Time, logger *log.Logger) *StatisticsService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &StatisticsService{
		reader:  reader,
		records: records,
		options: options,
		now:     now,
		logger:  logger.WithComponent(log.ComponentStatistics),
	}
}

// ResolveWindow maps a period name to a window. For PeriodRange, from and to
// are YYYY-MM-DD dates in now's location and both days are included.
func ResolveWindow(period, from, to string, now time.Time) (core.TimeWindow, error) {
	switch period {
	case "", PeriodMonth:
		return core.MonthWindow(now), nil
	case PeriodYear:
		return core.YearToDateWindow(now), nil
	case PeriodRange:
		start, err := time.ParseInLocation(dateLayout, from, now.Location())
		if err != nil {
			return core.TimeWindow{}, fmt.Errorf("%w: bad from date %q", ErrInvalidPeriod, from)
		}
		end, err := time.ParseInLocation(dateLayout, to, now.Location())
		if err != nil {
			return core.TimeWindow{}, fmt.Errorf("%w: bad to date %q", ErrInvalidPeriod, to)
		}
		return core.DayRangeWindow(start, end)
	default:
		return core.TimeWindow{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
}

// Report aggregates the named period relative to the service clock.
func (s *StatisticsService) Report(ctx context.Context, period, from, to string) (Report, error) {
	w, err := ResolveWindow(period, from, to, s.now())
	if err != nil {
		return Report{}, err
	}
	if period == "" {
		period = PeriodMonth
	}
	return s.ReportWindow(ctx, period, w)
}

func (s *StatisticsService) ReportWindow(ctx context.Context, period string, w core.TimeWindow) (Report, error) {
	summary, err := s.reader.Aggregate(ctx, w)
	if err != nil {
		return Report{}, fmt.Errorf("aggregate %s: %w", period, err)
	}

	display := stats.Normalize(summary.Stats, s.options)
	displaySum := 0.0
	for _, d := range display {
		displaySum += d.Display
	}

	slices := make([]Slice, 0, len(display))
	for _, d := range display {
		slices = append(slices, Slice{
			Category:     d.Category,
			Icon:         core.IconFor(d.Category),
			Actual:       d.Actual,
			Display:      d.Display,
			ActualShare:  d.ActualShare(summary.Total),
			DisplayShare: d.DisplayShare(displaySum),
		})
	}

	s.logger.DebugContext(ctx, "Statistics computed",
		log.FieldOperation, log.OpAggregate,
		log.FieldPeriod, period,
		log.FieldWindowStart, w.Start,
		log.FieldWindowEnd, w.End,
		"categories", len(summary.Stats),
		"slices", len(slices))

	return Report{
		Period:      period,
		Window:      w,
		Total:       summary.Total,
		RecordCount: summary.RecordCount(),
		Categories:  summary.Stats,
		Slices:      slices,
	}, nil
}

// Dashboard computes the month and year-to-date reports concurrently against
// a single clock reading.
func (s *StatisticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	var d Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.ReportWindow(gctx, PeriodMonth, core.MonthWindow(now))
		d.Month = r
		return err
	})
	g.Go(func() error {
		r, err := s.ReportWindow(gctx, PeriodYear, core.YearToDateWindow(now))
		d.Year = r
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// CategoryDetail returns the total, count and newest records of category in
// the named period. limit defaults to DefaultRecentLimit.
func (s *StatisticsService) CategoryDetail(ctx context.Context, category, period, from, to string, limit int) (CategoryDetail, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return CategoryDetail{}, core.ErrEmptyCategory
	}
	w, err := ResolveWindow(period, from, to, s.now())
	if err != nil {
		return CategoryDetail{}, err
	}
	if period == "" {
		period = PeriodMonth
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	records, err := s.records.QueryByTimeRange(ctx, w.Start, w.End)
	if err != nil {
		return CategoryDetail{}, fmt.Errorf("query %s records: %w", category, err)
	}
	matched := stats.CategoryRecords(records, w, category)

	total := decimal.Zero
	for _, r := range matched {
		total = total.Add(r.Amount)
	}
	d := CategoryDetail{
		Period:   period,
		Window:   w,
		Category: category,
		Icon:     core.IconFor(category),
		Total:    total,
		Count:    len(matched),
		Expenses: matched[:min(limit, len(matched))],
	}

	s.logger.DebugContext(ctx, "Category detail computed",
		log.FieldOperation, log.OpAggregate,
		log.FieldPeriod, period,
		log.FieldCategory, category,
		"count", d.Count)
	return d, nil
}
