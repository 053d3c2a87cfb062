package core

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("window start is after end")

// TimeWindow is the closed interval [Start, End].
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if start.After(end) {
		return TimeWindow{}, ErrInvalidWindow
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Contains reports whether t lies inside the window, bounds included.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Key is a stable identifier for the window, usable as a cache key.
func (w TimeWindow) Key() string {
	return w.Start.UTC().Format(time.RFC3339Nano) + "/" + w.End.UTC().Format(time.RFC3339Nano)
}

// MonthWindow covers the calendar month containing now, from its first
// instant up to now.
func MonthWindow(now time.Time) TimeWindow {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return TimeWindow{Start: start, End: now}
}

// YearToDateWindow covers January 1st of now's year up to now.
func YearToDateWindow(now time.Time) TimeWindow {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return TimeWindow{Start: start, End: now}
}

// DayRangeWindow covers whole days: from the start of from's day to the last
// nanosecond of to's day.
func DayRangeWindow(from, to time.Time) (TimeWindow, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return NewTimeWindow(start, end)
}
