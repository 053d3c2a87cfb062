// Package extraction turns a free-form utterance into an expense triple.
//
// The flow is: prompt the inference provider, parse its reply strictly, and
// fall back to a bare amount scan when the reply is not the expected JSON.
// Nothing here logs or touches storage.
package extraction

import "github.com/shopspring/decimal"

// InvalidSentinel is the category the model uses for non-accounting text.
const InvalidSentinel = "INVALID"

// Reasons carried by Invalid outcomes.
const (
	ReasonEmptyInput   = "empty input"
	ReasonNotExpense   = "not an expense"
	ReasonUnrecognized = "unrecognized"
	ReasonZeroAmount   = "zero amount"
)

// Outcome is one of Valid, Invalid or ParseFailure.
type Outcome interface {
	Kind() string
	isOutcome()
}

// Valid is a usable extraction. Category may lie outside the known vocabulary.
type Valid struct {
	Category    string
	Amount      decimal.Decimal
	Description string
}

// Invalid means the text was judged not to describe an expense. It is an
// expected result, not an error.
type Invalid struct {
	Reason string
}

// ParseFailure carries a reply that could not be decoded. The pipeline never
// returns it; it is resolved through Recover.
type ParseFailure struct {
	Raw string
}

func (Valid) Kind() string        { return "valid" }
func (Invalid) Kind() string      { return "invalid" }
func (ParseFailure) Kind() string { return "parse_failure" }

func (Valid) isOutcome()        {}
func (Invalid) isOutcome()      {}
func (ParseFailure) isOutcome() {}
