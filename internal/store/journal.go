package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"opsledger/internal/ledger"
)

// Run statuses recorded in the journal.
const (
	RunStatusStarted   = "started"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is one pipeline run in the journal.
type RunRecord struct {
	ID          string
	StartedAt   time.Time
	Snapshot    string
	Status      string
	Fingerprint string
}

// Journal records pipeline runs and the ledger entries skipped
// during extraction, so anomalies are reported durably rather than
// printed and lost.
type Journal struct {
	db *sql.DB
}

// OpenJournal creates or opens the journal database at the given
// path. The journal shares its schema with the SQLite master store,
// so the two may point at the same file.
func OpenJournal(path string) (*Journal, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordRun inserts a run record. Duplicate run ids are rejected.
func (j *Journal) RecordRun(ctx context.Context, run RunRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, snapshot, status, fingerprint)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Snapshot,
		run.Status,
		run.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// FinishRun updates a run's final status and master fingerprint.
func (j *Journal) FinishRun(ctx context.Context, id, status, fingerprint string) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, fingerprint = ? WHERE id = ?`,
		status, fingerprint, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordSkipped journals the ledger entries one run excluded.
func (j *Journal) RecordSkipped(ctx context.Context, runID string, skipped []ledger.Skipped) error {
	for _, s := range skipped {
		if _, err := j.db.ExecContext(ctx, `
			INSERT INTO skipped_entries (run_id, kind, position, day, description, reason)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			runID, string(s.Kind), s.Position, s.Day, s.Description, s.Reason,
		); err != nil {
			return fmt.Errorf("record skipped entry: %w", err)
		}
	}
	return nil
}

// Runs returns all journaled runs, most recent first.
func (j *Journal) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, snapshot, status, fingerprint
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedAt string
		if err := rows.Scan(&r.ID, &startedAt, &r.Snapshot, &r.Status, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SkippedForRun returns the skipped ledger entries journaled for one
// run, in insertion order.
func (j *Journal) SkippedForRun(ctx context.Context, runID string) ([]ledger.Skipped, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, position, day, description, reason
		FROM skipped_entries WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list skipped entries: %w", err)
	}
	defer rows.Close()

	var skipped []ledger.Skipped
	for rows.Next() {
		var s ledger.Skipped
		var kind string
		if err := rows.Scan(&kind, &s.Position, &s.Day, &s.Description, &s.Reason); err != nil {
			return nil, fmt.Errorf("list skipped entries: %w", err)
		}
		s.Kind = ledger.Kind(kind)
		skipped = append(skipped, s)
	}
	return skipped, rows.Err()
}
