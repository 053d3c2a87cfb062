// Package core provides money formatting utilities.
//
// Amounts are carried as decimal.Decimal so that sums over many records stay
// exact; float64 only appears in chart display values.
package core

import "github.com/shopspring/decimal"

// FormatYuan renders an amount with the yuan sign and two decimals ("¥35.00").
func FormatYuan(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-¥" + d.Neg().StringFixed(2)
	}
	return "¥" + d.StringFixed(2)
}
