// Package table defines the in-memory tabular model shared by the
// whole pipeline: a Workbook is an ordered set of named sheets, a
// sheet is an ordered set of named columns over ordered rows of
// scalar cells.
//
// Ordering is part of the contract. Store backends must round-trip
// sheet order, column order, and row order unchanged, because the
// consolidator's wholesale-replace semantics and the golden tests
// both depend on it.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is a single scalar cell value: string, int64, or float64.
// Blank cells are the empty string, never nil.
type Cell = any

// Table is one named sheet's worth of data: ordered columns and rows.
// Rows are ragged-tolerant on read but normalized to len(Columns) by
// the store backends.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds a row, padding or truncating it to the column count.
func (t *Table) AppendRow(cells ...Cell) {
	row := make([]Cell, len(t.Columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	t.Rows = append(t.Rows, row)
}

// EnsureColumn returns the index of the named column, appending it
// (with blank cells on every existing row) if it does not exist yet.
// Columns are added, never removed.
func (t *Table) EnsureColumn(name string) int {
	if i := t.ColumnIndex(name); i >= 0 {
		return i
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], Cell(""))
	}
	return len(t.Columns) - 1
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]Cell(nil), row...)
	}
	return c
}

// Sheet is a named table inside a workbook.
type Sheet struct {
	Name string
	*Table
}

// Workbook is an ordered collection of uniquely named sheets.
type Workbook struct {
	sheets []*Sheet
	index  map[string]int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{index: make(map[string]int)}
}

// Names returns the sheet names in order.
func (w *Workbook) Names() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.Name
	}
	return names
}

// Sheets returns the sheets in order.
func (w *Workbook) Sheets() []*Sheet {
	return w.sheets
}

// Sheet returns the named sheet, or nil if absent.
func (w *Workbook) Sheet(name string) *Sheet {
	if i, ok := w.index[name]; ok {
		return w.sheets[i]
	}
	return nil
}

// Put adds the named sheet, replacing any existing sheet of the same
// name wholesale while keeping its position in the sheet order.
func (w *Workbook) Put(name string, t *Table) {
	if i, ok := w.index[name]; ok {
		w.sheets[i] = &Sheet{Name: name, Table: t}
		return
	}
	w.index[name] = len(w.sheets)
	w.sheets = append(w.sheets, &Sheet{Name: name, Table: t})
}

// Len returns the number of sheets.
func (w *Workbook) Len() int {
	return len(w.sheets)
}

// Clone returns a deep copy of the workbook.
func (w *Workbook) Clone() *Workbook {
	c := NewWorkbook()
	for _, s := range w.sheets {
		c.Put(s.Name, s.Table.Clone())
	}
	return c
}

// ParseCell converts a raw cell string into a typed Cell. Integer
// text becomes int64, decimal text becomes float64, everything else
// (including blank) stays a string. Leading zeros are preserved as
// text so identifiers like "007" survive round-trips.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	if len(s) > 1 && s[0] == '0' && s != "0" && !strings.ContainsAny(s, ".eE") {
		return raw
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return raw
}

// FormatCell renders a cell back to its string form for storage
// backends that only hold text.
func FormatCell(c Cell) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// CellInt reads a cell as an integer day-like value. Accepts int64
// and exact integral float64; anything else fails.
func CellInt(c Cell) (int, bool) {
	switch v := c.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int(v), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// CellString reads a cell as text.
func CellString(c Cell) string {
	return FormatCell(c)
}
