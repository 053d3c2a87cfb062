package stats

import (
	"slices"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
)

// Options tunes Normalize. Fractions are relative to the grand total.
type Options struct {
	// MaxSlices caps the number of kept categories; "其他" may come on top.
	// Zero or less disables the cap.
	MaxSlices int
	// MergeThreshold is the share below which a category is merged into "其他".
	MergeThreshold float64
	// MinDisplayFraction is the smallest share any output slice is drawn with.
	MinDisplayFraction float64
}

func DefaultOptions() Options {
	return Options{
		MaxSlices:          5,
		MergeThreshold:     0.03,
		MinDisplayFraction: 0.06,
	}
}

// Normalize converts category totals into display values.
//
// Categories under MergeThreshold, and every category beyond the top
// MaxSlices, are merged into a trailing "其他" entry. Each entry is then
// raised to at least total×MinDisplayFraction, and the amount added is taken
// back from the entries above the floor in proportion to their size, in a
// single pass and never pushing them below the floor. Actual always carries
// the true total.
func Normalize(stats []core.CategoryStatistic, opts Options) []core.DisplayStatistic {
	total := decimal.Zero
	for _, s := range stats {
		total = total.Add(s.Total)
	}
	if len(stats) == 0 || !total.IsPositive() {
		return []core.DisplayStatistic{}
	}

	sorted := slices.Clone(stats)
	sortStatistics(sorted)

	threshold := total.Mul(decimal.NewFromFloat(opts.MergeThreshold))
	kept := 0
	for kept < len(sorted) && sorted[kept].Total.GreaterThanOrEqual(threshold) {
		kept++
	}
	if opts.MaxSlices > 0 && kept > opts.MaxSlices {
		kept = opts.MaxSlices
	}

	out := make([]core.DisplayStatistic, 0, kept+1)
	other := decimal.Zero
	for i, s := range sorted {
		// A kept catch-all category joins the merged bucket so the label appears once.
		if i >= kept || s.Category == core.CategoryOther {
			other = other.Add(s.Total)
			continue
		}
		out = append(out, core.DisplayStatistic{
			Category: s.Category,
			Actual:   s.Total,
			Display:  s.Total.InexactFloat64(),
		})
	}
	if other.IsPositive() {
		out = append(out, core.DisplayStatistic{
			Category: core.CategoryOther,
			Actual:   other,
			Display:  other.InexactFloat64(),
		})
	}

	applyMinimumVisibility(out, total.InexactFloat64()*opts.MinDisplayFraction)
	return out
}

// applyMinimumVisibility raises entries to floor and gives the added amount
// back from the entries that were above it.
func applyMinimumVisibility(entries []core.DisplayStatistic, floor float64) {
	if floor <= 0 {
		return
	}

	adjustment := 0.0
	for i := range entries {
		if entries[i].Display < floor {
			adjustment += floor - entries[i].Display
			entries[i].Display = floor
		}
	}
	if adjustment <= 0 {
		return
	}

	largeTotal := 0.0
	for _, e := range entries {
		if e.Display > floor {
			largeTotal += e.Display
		}
	}
	if largeTotal <= 0 {
		return
	}

	ratio := adjustment / largeTotal
	for i := range entries {
		if entries[i].Display <= floor {
			continue
		}
		v := entries[i].Display * (1 - ratio)
		if v < floor {
			v = floor
		}
		entries[i].Display = v
	}
}
