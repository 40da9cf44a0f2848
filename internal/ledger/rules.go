package ledger

import (
	"math"
	"regexp"

	"opsledger/internal/table"
)

// Kind identifies one tracked attribute category.
type Kind string

// The four built-in attribute kinds.
const (
	KindPrice        Kind = "price"
	KindCapacity     Kind = "capacity"
	KindInitialBatch Kind = "initial-batch"
	KindFinalBatch   Kind = "final-batch"
)

// Rule pairs a matching rule with a value-extraction rule for one
// attribute kind. Match is a case-insensitive substring test against
// the entry description; Pattern must contain exactly one capture
// group yielding the numeric value.
//
// Matching is substring, not whole-word: rule authors must keep
// triggers mutually unambiguous ("initial standard batch size" and
// "final standard batch size" are exclusive by construction).
type Rule struct {
	Kind    Kind
	Column  string
	Match   string
	Pattern *regexp.Regexp
	Decimal bool
}

// CellValue converts an extracted value into the cell written onto
// the primary table: int64 for integer kinds, a 2-decimal float for
// decimal kinds.
func (r Rule) CellValue(v float64) table.Cell {
	if r.Decimal {
		return Round2(v)
	}
	return int64(v)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuiltinRules returns the rule table for the four tracked kinds.
// Callers get a fresh slice; the compiled patterns are shared and
// safe for concurrent use.
func BuiltinRules() []Rule {
	return []Rule{
		{
			Kind:    KindPrice,
			Column:  "Current Price",
			Match:   "price",
			Pattern: pricePattern,
		},
		{
			Kind:    KindCapacity,
			Column:  "Capacity Allocation %",
			Match:   "capacity allocation",
			Pattern: capacityPattern,
			Decimal: true,
		},
		{
			Kind:    KindInitialBatch,
			Column:  "Initial Batch Size",
			Match:   "initial standard batch size",
			Pattern: batchPattern,
		},
		{
			Kind:    KindFinalBatch,
			Column:  "Final Batch Size",
			Match:   "final standard batch size",
			Pattern: batchPattern,
		},
	}
}

// RuleFor returns the rule for the given kind from the rule set.
func RuleFor(rules []Rule, kind Kind) (Rule, bool) {
	for _, r := range rules {
		if r.Kind == kind {
			return r, true
		}
	}
	return Rule{}, false
}

var (
	// First integer after a dollar sign.
	pricePattern = regexp.MustCompile(`\$(\d+)`)
	// First decimal following "to ".
	capacityPattern = regexp.MustCompile(`to (\d+\.?\d*)`)
	// First integer preceding " units".
	batchPattern = regexp.MustCompile(`(\d+) units`)
)
