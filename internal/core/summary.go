package core

import "github.com/shopspring/decimal"

// CategoryStatistic is the sum and count of records of one category inside a
// window.
type CategoryStatistic struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// DisplayStatistic pairs a category's true total with the value a chart
// should draw for it. Actual is authoritative; Display is a rendering proxy.
type DisplayStatistic struct {
	Category string
	Actual   decimal.Decimal
	Display  float64
}

// ActualShare returns Actual as a fraction of total, or 0 for a non-positive total.
func (d DisplayStatistic) ActualShare(total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return d.Actual.InexactFloat64() / total.InexactFloat64()
}

// DisplayShare returns Display as a fraction of the sum of all display values.
func (d DisplayStatistic) DisplayShare(displaySum float64) float64 {
	if displaySum <= 0 {
		return 0
	}
	return d.Display / displaySum
}
