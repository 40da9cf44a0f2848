package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"opsledger/internal/table"
)

func masterFixture() *table.Workbook {
	std := table.NewTable("Day", "Units")
	std.AppendRow(int64(1), int64(60))
	std.AppendRow(int64(2), int64(55))

	hist := table.NewTable("Day", "Description")
	hist.AppendRow(int64(3), "Updated price to $150.")

	wb := table.NewWorkbook()
	wb.Put("Standard", std)
	wb.Put("History", hist)
	return wb
}

func TestXLSXLoadMissingFile(t *testing.T) {
	s := NewXLSX(filepath.Join(t.TempDir(), "Master.xlsx"))
	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load error = %v, want ErrNotFound", err)
	}
}

func TestXLSXSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewXLSX(filepath.Join(t.TempDir(), "Master.xlsx"))

	if err := s.Save(ctx, masterFixture()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(got.Names(), []string{"Standard", "History"}) {
		t.Errorf("sheet names = %v", got.Names())
	}
	std := got.Sheet("Standard")
	if !reflect.DeepEqual(std.Columns, []string{"Day", "Units"}) {
		t.Errorf("columns = %v", std.Columns)
	}
	if day, ok := table.CellInt(std.Rows[0][0]); !ok || day != 1 {
		t.Errorf("row 0 day = %v", std.Rows[0][0])
	}
	if units, ok := table.CellInt(std.Rows[1][1]); !ok || units != 55 {
		t.Errorf("row 1 units = %v", std.Rows[1][1])
	}
}

func TestXLSXSaveOverwritesAtomically(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Master.xlsx")
	s := NewXLSX(path)

	if err := s.Save(ctx, masterFixture()); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := masterFixture()
	second.Sheet("Standard").Rows[0][1] = int64(99)
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if units, _ := table.CellInt(got.Sheet("Standard").Rows[0][1]); units != 99 {
		t.Errorf("units = %d, want 99 from second save", units)
	}

	// No staged temp files may survive a successful commit.
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".master-*.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("staged temp files left behind: %v", matches)
	}
}

func TestOpenPicksBackendByExtension(t *testing.T) {
	dir := t.TempDir()

	xs, err := Open(filepath.Join(dir, "Master.xlsx"))
	if err != nil {
		t.Fatalf("Open xlsx failed: %v", err)
	}
	defer xs.Close()
	if _, ok := xs.(*XLSX); !ok {
		t.Errorf("Open(.xlsx) = %T, want *XLSX", xs)
	}

	ss, err := Open(filepath.Join(dir, "master.db"))
	if err != nil {
		t.Fatalf("Open sqlite failed: %v", err)
	}
	defer ss.Close()
	if _, ok := ss.(*SQLite); !ok {
		t.Errorf("Open(.db) = %T, want *SQLite", ss)
	}
}
