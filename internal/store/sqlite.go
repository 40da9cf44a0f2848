package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"opsledger/internal/table"
)

//go:embed schema.sql
var schemaSQL string

// SQLite persists the master workbook in a SQLite database. The same
// database also hosts the run journal (see journal.go).
//
// The connection pool is limited to a single connection: SQLite
// supports one writer at a time, and the pipeline is single-writer
// by design.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite creates or opens the database at the given path and
// applies pragmas and schema. Idempotent.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load reads the full workbook. An empty database returns
// ErrNotFound so first runs are indistinguishable from the XLSX
// backend's missing-file case.
func (s *SQLite) Load(ctx context.Context) (*table.Workbook, error) {
	names, err := s.sheetNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNotFound
	}

	wb := table.NewWorkbook()
	for _, name := range names {
		t, err := s.loadSheet(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load sheet %q: %w", name, err)
		}
		wb.Put(name, t)
	}
	return wb, nil
}

// Save replaces the stored sheet set with the given workbook in one
// transaction. Either every sheet commits or the prior state stays.
func (s *SQLite) Save(ctx context.Context, wb *table.Workbook) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	defer tx.Rollback()

	// Full overwrite; cascades clear columns and cells.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sheets`); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	for pos, sheet := range wb.Sheets() {
		if err := saveSheet(ctx, tx, sheet, pos); err != nil {
			return fmt.Errorf("save sheet %q: %w", sheet.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func saveSheet(ctx context.Context, tx *sql.Tx, sheet *table.Sheet, pos int) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sheets (name, position) VALUES (?, ?)`,
		sheet.Name, pos,
	); err != nil {
		return err
	}
	for i, col := range sheet.Columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sheet_columns (sheet, position, name) VALUES (?, ?, ?)`,
			sheet.Name, i, col,
		); err != nil {
			return err
		}
	}
	for r, row := range sheet.Rows {
		for c, cell := range row {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sheet_cells (sheet, row, col, value) VALUES (?, ?, ?, ?)`,
				sheet.Name, r, c, table.FormatCell(cell),
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLite) sheetNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sheets ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list sheets: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLite) loadSheet(ctx context.Context, name string) (*table.Table, error) {
	cols, err := s.db.QueryContext(ctx,
		`SELECT name FROM sheet_columns WHERE sheet = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer cols.Close()

	var columns []string
	for cols.Next() {
		var c string
		if err := cols.Scan(&c); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	if err := cols.Err(); err != nil {
		return nil, err
	}

	t := table.NewTable(columns...)

	cells, err := s.db.QueryContext(ctx,
		`SELECT row, col, value FROM sheet_cells WHERE sheet = ? ORDER BY row, col`, name)
	if err != nil {
		return nil, err
	}
	defer cells.Close()

	currentRow := -1
	var row []table.Cell
	flush := func() {
		if currentRow >= 0 {
			t.AppendRow(row...)
		}
	}
	for cells.Next() {
		var r, c int
		var v string
		if err := cells.Scan(&r, &c, &v); err != nil {
			return nil, err
		}
		if r != currentRow {
			flush()
			currentRow = r
			row = make([]table.Cell, len(columns))
			for i := range row {
				row[i] = ""
			}
		}
		if c < len(row) {
			row[c] = table.ParseCell(v)
		}
	}
	flush()
	return t, cells.Err()
}
