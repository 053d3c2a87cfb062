package stats

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"jizhang/internal/cache"
	"jizhang/internal/core"
)

// CachedAggregator memoizes the records of a window and summarizes them on
// every call. Windows that share a start and end on the same day share one
// entry, so "month so far" queries issued during a day hit the cache even
// though their end instant moves. Concurrent loads of the same entry share
// one store query. Invalidate must be called after every write to the store.
type CachedAggregator struct {
	store RecordQuerier
	cache cache.Cache[[]core.ExpenseRecord]
	group singleflight.Group
	gen   atomic.Uint64
}

var (
	_ SummaryReader = (*Aggregator)(nil)
	_ SummaryReader = (*CachedAggregator)(nil)
)

func NewCachedAggregator(store RecordQuerier, c cache.Cache[[]core.ExpenseRecord]) *CachedAggregator {
	return &CachedAggregator{store: store, cache: c}
}

func (c *CachedAggregator) Aggregate(ctx context.Context, w core.TimeWindow) (Summary, error) {
	if w.Start.After(w.End) {
		return Summary{}, core.ErrInvalidWindow
	}

	span := core.TimeWindow{Start: w.Start, End: endOfDay(w.End)}
	key := span.Key()
	if records, ok := c.cache.Get(key); ok {
		return Summarize(records, w), nil
	}

	gen := c.gen.Load()
	// The shared load must not fail for every waiter when the first caller goes away.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		records, err := c.store.QueryByTimeRange(loadCtx, span.Start, span.End)
		if err != nil {
			return nil, fmt.Errorf("query records: %w", err)
		}
		// A write during the load makes the result stale.
		if c.gen.Load() == gen {
			c.cache.Set(key, records)
		}
		return records, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(v.([]core.ExpenseRecord), w), nil
}

// Invalidate drops every cached entry.
func (c *CachedAggregator) Invalidate() {
	c.gen.Add(1)
	c.cache.Purge()
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
