package extraction

import (
	"regexp"

	"github.com/shopspring/decimal"

	"jizhang/internal/core"
)

var amountPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// ExtractAmount returns the first decimal number found in text. It reports
// false when there is none or when that first number is not positive.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	m := amountPattern.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Recover resolves a ParseFailure: a positive amount in the raw text becomes
// a Valid outcome in the catch-all category, anything else is Invalid.
func Recover(pf ParseFailure) Outcome {
	amount, ok := ExtractAmount(pf.Raw)
	if !ok {
		return Invalid{Reason: ReasonUnrecognized}
	}
	return Valid{
		Category:    core.CategoryOther,
		Amount:      amount,
		Description: pf.Raw,
	}
}
