// Package ledger parses the append-only History table and extracts
// typed attribute updates from its free-text change descriptions.
//
// Extraction is deliberately data-driven: each attribute kind is a
// Rule pairing a case-insensitive substring trigger with a value
// pattern. New kinds are new rules, not new code paths.
package ledger

import (
	"fmt"

	"opsledger/internal/table"
)

// Entry is one dated, free-text ledger row. Entries are immutable and
// append-only; multiple entries may share a day.
type Entry struct {
	// Position is the zero-based row index in the original ledger
	// order. Same-day duplicates are resolved by position (latest
	// wins), so it must survive parsing.
	Position    int
	Day         int
	Description string
}

// Skipped records a ledger row that was excluded from extraction,
// with enough context to report it.
type Skipped struct {
	Position    int    `json:"position"`
	Day         int    `json:"day"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind,omitempty"`
	Reason      string `json:"reason"`
}

// DayColumn and DescriptionColumn are the required History headers.
const (
	DayColumn         = "Day"
	DescriptionColumn = "Description"
)

// ParseEntries reads ledger entries out of a History table. Rows
// whose Day cell is not a non-negative integer are excluded and
// reported in the skipped list; a missing required column is an
// error.
func ParseEntries(t *table.Table) ([]Entry, []Skipped, error) {
	dayIdx := t.ColumnIndex(DayColumn)
	if dayIdx < 0 {
		return nil, nil, fmt.Errorf("ledger table has no %q column", DayColumn)
	}
	descIdx := t.ColumnIndex(DescriptionColumn)
	if descIdx < 0 {
		return nil, nil, fmt.Errorf("ledger table has no %q column", DescriptionColumn)
	}

	var entries []Entry
	var skipped []Skipped
	for i, row := range t.Rows {
		desc := table.CellString(row[descIdx])
		day, ok := table.CellInt(row[dayIdx])
		if !ok || day < 0 {
			skipped = append(skipped, Skipped{
				Position:    i,
				Description: desc,
				Reason:      fmt.Sprintf("day %q is not a non-negative integer", table.CellString(row[dayIdx])),
			})
			continue
		}
		entries = append(entries, Entry{Position: i, Day: day, Description: desc})
	}
	return entries, skipped, nil
}
