// Package consolidate merges incoming daily snapshots into the
// master workbook and picks which snapshot to merge.
package consolidate

import (
	"regexp"
	"strings"

	"opsledger/internal/table"
)

// GraphSuffix marks derived graph/plot sheets that never reach the
// master.
const GraphSuffix = "-Graphs"

// ExcludeGraphSheets is the default exclusion predicate.
func ExcludeGraphSheets(name string) bool {
	return strings.HasSuffix(name, GraphSuffix)
}

// Result reports what a consolidation pass did.
type Result struct {
	Written  []string `json:"written"`
	Excluded []string `json:"excluded,omitempty"`
}

// placeholderHeader matches auto-generated column names that stand in
// for an originally blank header.
var placeholderHeader = regexp.MustCompile(`^Unnamed: \d+$`)

// Consolidate merges an incoming snapshot into the master workbook
// and returns the merged result as a new workbook. The inputs are
// not mutated; persistence (and its atomicity) is the store's job.
//
// Semantics:
//   - sheets matching exclude are dropped and never reach the master;
//   - every other incoming sheet replaces the master's version
//     wholesale (full overwrite, not row append);
//   - master sheets absent from the incoming snapshot survive
//     unchanged (sheet-set merge);
//   - placeholder headers are normalized to empty labels.
func Consolidate(master, incoming *table.Workbook, exclude func(string) bool) (*table.Workbook, *Result) {
	if exclude == nil {
		exclude = ExcludeGraphSheets
	}

	merged := table.NewWorkbook()
	if master != nil {
		merged = master.Clone()
	}

	res := &Result{}
	for _, sheet := range incoming.Sheets() {
		if exclude(sheet.Name) {
			res.Excluded = append(res.Excluded, sheet.Name)
			continue
		}
		t := sheet.Table.Clone()
		NormalizeHeaders(t)
		merged.Put(sheet.Name, t)
		res.Written = append(res.Written, sheet.Name)
	}
	return merged, res
}

// NormalizeHeaders renames auto-generated placeholder column names to
// empty labels, in place.
func NormalizeHeaders(t *table.Table) {
	for i, c := range t.Columns {
		if placeholderHeader.MatchString(c) {
			t.Columns[i] = ""
		}
	}
}
