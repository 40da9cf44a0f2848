// Package project computes as-of projections of attribute updates
// and materializes them as columns on the primary table.
//
// As-of semantics: the value in effect on day d is the most recent
// update at or before d. An update takes effect on its own day
// (inclusive boundary). Days before the first update get the
// configured default.
package project

import (
	"sort"

	"opsledger/internal/ledger"
)

// AsOf returns the value in effect on the given day: the value of
// the update with the largest day <= day, or def when no update
// applies. Updates must be sorted ascending with unique days, which
// is what ledger.Extract produces.
func AsOf(updates []ledger.Update, day int, def float64) float64 {
	// First index with update day > day.
	i := sort.Search(len(updates), func(i int) bool {
		return updates[i].Day > day
	})
	if i == 0 {
		return def
	}
	return updates[i-1].Value
}

// Project computes the as-of value for every target day. The result
// depends only on (updates, days, def), never on traversal order.
func Project(updates []ledger.Update, days []int, def float64) map[int]float64 {
	out := make(map[int]float64, len(days))
	for _, d := range days {
		out[d] = AsOf(updates, d, def)
	}
	return out
}
