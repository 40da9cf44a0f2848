package project

import (
	"fmt"

	"opsledger/internal/ledger"
	"opsledger/internal/table"
)

// Result reports what one annotation pass did.
type Result struct {
	Kind    ledger.Kind      `json:"kind"`
	Column  string           `json:"column"`
	Updates int              `json:"updates"`
	Rows    int              `json:"rows"`
	Skipped []ledger.Skipped `json:"skipped,omitempty"`
}

// Annotate writes the as-of projection of one attribute kind onto
// every row of the primary table, in place. The column is created if
// absent and overwritten if present; annotation is a pure function
// of (the table's Day column, the ledger entries, the rule, the
// default), so re-running with identical inputs is idempotent.
//
// All rows sharing a Day get the same value; granularity is per-day,
// not per-row.
func Annotate(primary *table.Table, entries []ledger.Entry, rule ledger.Rule, def float64) (*Result, error) {
	dayIdx := primary.ColumnIndex(ledger.DayColumn)
	if dayIdx < 0 {
		return nil, fmt.Errorf("primary table has no %q column", ledger.DayColumn)
	}

	updates, skipped := ledger.Extract(entries, rule)

	colIdx := primary.EnsureColumn(rule.Column)
	for i, row := range primary.Rows {
		day, ok := table.CellInt(row[dayIdx])
		if !ok {
			return nil, fmt.Errorf("primary row %d: day %q is not an integer", i, table.CellString(row[dayIdx]))
		}
		row[colIdx] = rule.CellValue(AsOf(updates, day, def))
	}

	return &Result{
		Kind:    rule.Kind,
		Column:  rule.Column,
		Updates: len(updates),
		Rows:    len(primary.Rows),
		Skipped: skipped,
	}, nil
}
