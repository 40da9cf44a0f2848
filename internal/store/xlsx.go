package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"opsledger/internal/table"
)

// XLSX persists the master workbook as an Excel file. Saves are
// staged to a temp file in the same directory and renamed into
// place, so a failed write leaves the previous master untouched.
type XLSX struct {
	Path string

	// FormatSource, when set, is a workbook whose column widths and
	// header styles are replicated onto like-named sheets during
	// Save. Purely cosmetic, best effort: replication failures never
	// fail the save.
	FormatSource string
}

var _ Store = (*XLSX)(nil)

// NewXLSX creates an XLSX store at the given path.
func NewXLSX(path string) *XLSX {
	return &XLSX{Path: path}
}

// Load reads every sheet of the workbook. The first row of a sheet
// is its header; remaining rows are parsed into typed cells.
func (s *XLSX) Load(_ context.Context) (*table.Workbook, error) {
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path, err)
	}
	defer f.Close()

	wb := table.NewWorkbook()
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.Put(name, rowsToTable(rows))
	}
	return wb, nil
}

// Save writes the full workbook to a staged temp file, replicates
// formatting if configured, then commits with an atomic rename.
func (s *XLSX) Save(_ context.Context, wb *table.Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range wb.Sheets() {
		if i == 0 {
			// Reuse the default sheet so the workbook never carries
			// an empty "Sheet1".
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("name sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			return fmt.Errorf("write sheet %q: %w", sheet.Name, err)
		}
	}

	s.replicateFormatting(f, wb)

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".master-*.xlsx")
	if err != nil {
		return fmt.Errorf("stage workbook: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := f.SaveAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("stage workbook: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit workbook: %w", err)
	}
	return nil
}

// Close is a no-op; the XLSX store holds no open handles between
// operations.
func (s *XLSX) Close() error { return nil }

func writeSheet(f *excelize.File, sheet *table.Sheet) error {
	header := make([]any, len(sheet.Columns))
	for i, c := range sheet.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}
	for r, row := range sheet.Rows {
		cells := make([]any, len(row))
		copy(cells, row)
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, addr, &cells); err != nil {
			return err
		}
	}
	return nil
}

// replicateFormatting copies column widths and header-row styles
// from the format source onto like-named sheets. Best effort only.
func (s *XLSX) replicateFormatting(dst *excelize.File, wb *table.Workbook) {
	if s.FormatSource == "" {
		return
	}
	src, err := excelize.OpenFile(s.FormatSource)
	if err != nil {
		return
	}
	defer src.Close()

	srcSheets := make(map[string]bool)
	for _, name := range src.GetSheetList() {
		srcSheets[name] = true
	}

	for _, sheet := range wb.Sheets() {
		if !srcSheets[sheet.Name] {
			continue
		}
		copyHeaderFormat(src, dst, sheet.Name, len(sheet.Columns))
	}
}

func copyHeaderFormat(src, dst *excelize.File, sheet string, ncols int) {
	for col := 1; col <= ncols; col++ {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		if width, err := src.GetColWidth(sheet, colName); err == nil {
			_ = dst.SetColWidth(sheet, colName, colName, width)
		}
		cell, err := excelize.CoordinatesToCellName(col, 1)
		if err != nil {
			continue
		}
		styleID, err := src.GetCellStyle(sheet, cell)
		if err != nil || styleID == 0 {
			continue
		}
		style, err := src.GetStyle(styleID)
		if err != nil {
			continue
		}
		newID, err := dst.NewStyle(style)
		if err != nil {
			continue
		}
		_ = dst.SetCellStyle(sheet, cell, cell, newID)
	}
}

func rowsToTable(rows [][]string) *table.Table {
	if len(rows) == 0 {
		return table.NewTable()
	}
	t := table.NewTable(rows[0]...)
	for _, raw := range rows[1:] {
		cells := make([]table.Cell, len(raw))
		for i, v := range raw {
			cells[i] = table.ParseCell(v)
		}
		t.AppendRow(cells...)
	}
	return t
}
