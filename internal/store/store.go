// Package store persists the master workbook.
//
// Two backends implement the same contract: an XLSX file (the
// interchange format the snapshots arrive in) and a SQLite database
// (which also carries the run journal). Both preserve sheet order,
// column order, and row order, and both commit a Save atomically:
// the master is never observable in a partially-updated state.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"opsledger/internal/table"
)

// ErrNotFound reports that no master workbook exists yet at the
// configured location. First runs treat this as an empty master.
var ErrNotFound = errors.New("master workbook not found")

// Store loads and saves the master workbook. The master file is a
// single-writer resource: concurrent pipelines against the same
// store must be serialized by the caller.
type Store interface {
	// Load reads the full workbook. Returns ErrNotFound when the
	// store location has never been written.
	Load(ctx context.Context) (*table.Workbook, error)

	// Save persists the full workbook atomically: either every sheet
	// is committed or the prior state is preserved untouched.
	Save(ctx context.Context, wb *table.Workbook) error

	Close() error
}

// Open picks a backend from the path: .xlsx opens the Excel backend,
// anything else the SQLite backend.
func Open(path string) (Store, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewXLSX(path), nil
	}
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return s, nil
}
