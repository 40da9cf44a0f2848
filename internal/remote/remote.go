// Package remote mirrors the master workbook into a second store.
//
// The remote side is just another store.Store: an XLSX file or a
// SQLite database, local or on a mounted share. Sync semantics match
// an upsert mirror: remote sheets are created if absent, replaced if
// present, and deleted when no longer present locally. The pipeline
// never depends on a sync succeeding.
package remote

import (
	"context"
	"errors"
	"fmt"

	"opsledger/internal/store"
	"opsledger/internal/table"
)

// Result reports what a sync did.
type Result struct {
	Created  []string `json:"created,omitempty"`
	Replaced []string `json:"replaced,omitempty"`
	Deleted  []string `json:"deleted,omitempty"`
}

// Sync mirrors the source store's workbook onto the destination.
// The destination ends up with exactly the source's sheet set; its
// previous contents decide only how the result is reported.
func Sync(ctx context.Context, src, dst store.Store) (*Result, error) {
	wb, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	existing := make(map[string]bool)
	prior, err := dst.Load(ctx)
	switch {
	case err == nil:
		for _, name := range prior.Names() {
			existing[name] = true
		}
	case errors.Is(err, store.ErrNotFound):
		// Fresh remote.
	default:
		return nil, fmt.Errorf("load destination: %w", err)
	}

	res := &Result{}
	local := make(map[string]bool)
	for _, name := range wb.Names() {
		local[name] = true
		if existing[name] {
			res.Replaced = append(res.Replaced, name)
		} else {
			res.Created = append(res.Created, name)
		}
	}
	for _, name := range priorNames(prior) {
		if !local[name] {
			res.Deleted = append(res.Deleted, name)
		}
	}

	if err := dst.Save(ctx, wb); err != nil {
		return nil, fmt.Errorf("save destination: %w", err)
	}
	return res, nil
}

func priorNames(wb *table.Workbook) []string {
	if wb == nil {
		return nil
	}
	return wb.Names()
}
