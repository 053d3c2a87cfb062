package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Extraction is the structurally valid content of a model reply.
type Extraction struct {
	Category    string
	Amount      decimal.Decimal
	Description string
}

// ParseError reports why a reply could not be decoded.
type ParseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse response: %s: %v", e.Reason, e.Err)
	}
	return "parse response: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type wireExtraction struct {
	Category    *string  `json:"category"`
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
}

// Parse decodes a reply of the form {"category", "amount", "description"},
// optionally wrapped in a Markdown code fence. Extra fields are ignored;
// missing or mistyped fields, a negative amount or an empty category fail.
func Parse(raw string) (Extraction, error) {
	clean := stripFences(raw)
	if clean == "" {
		return Extraction{}, &ParseError{Raw: raw, Reason: "empty content"}
	}

	var w wireExtraction
	if err := json.Unmarshal([]byte(clean), &w); err != nil {
		return Extraction{}, &ParseError{Raw: raw, Reason: "malformed json", Err: err}
	}

	switch {
	case w.Category == nil:
		return Extraction{}, &ParseError{Raw: raw, Reason: "missing category"}
	case w.Amount == nil:
		return Extraction{}, &ParseError{Raw: raw, Reason: "missing amount"}
	case w.Description == nil:
		return Extraction{}, &ParseError{Raw: raw, Reason: "missing description"}
	}

	if strings.TrimSpace(*w.Category) == "" {
		return Extraction{}, &ParseError{Raw: raw, Reason: "empty category"}
	}
	amount := *w.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Extraction{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("amount out of range: %v", amount)}
	}

	return Extraction{
		Category:    *w.Category,
		Amount:      decimal.NewFromFloat(amount),
		Description: *w.Description,
	}, nil
}

// stripFences removes a surrounding ``` fence (with optional language tag)
// and whitespace.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimLeft(s[3:], "`")
		// Drop a language tag such as "json", whether a newline or a space follows it.
		if tag := strings.IndexFunc(s, func(r rune) bool { return !isTagRune(r) }); tag > 0 {
			s = s[tag:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isTagRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// Interpret classifies a raw reply without any fallback. The sentinel yields
// Invalid carrying the model's description as reason; a decode failure yields
// ParseFailure.
func Interpret(content string) Outcome {
	ext, err := Parse(content)
	if err != nil {
		return ParseFailure{Raw: content}
	}
	if ext.Category == InvalidSentinel {
		reason := strings.TrimSpace(ext.Description)
		if reason == "" {
			reason = ReasonNotExpense
		}
		return Invalid{Reason: reason}
	}
	if !ext.Amount.IsPositive() {
		return Invalid{Reason: ReasonZeroAmount}
	}
	return Valid{
		Category:    ext.Category,
		Amount:      ext.Amount,
		Description: ext.Description,
	}
}
