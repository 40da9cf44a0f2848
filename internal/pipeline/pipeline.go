// Package pipeline orchestrates one end-to-end run: pick the latest
// snapshot, consolidate it into the master store, annotate the
// primary table with the four attribute projections, journal the
// outcome, and optionally mirror to a remote store.
//
// The pipeline is single-threaded and synchronous by design. The
// master store is a single-writer resource; concurrent runs against
// the same store must be serialized by the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"opsledger/internal/config"
	"opsledger/internal/consolidate"
	"opsledger/internal/ledger"
	"opsledger/internal/project"
	"opsledger/internal/remote"
	"opsledger/internal/store"
	"opsledger/internal/table"
)

// Required master sheets.
const (
	SheetHistory  = "History"
	SheetStandard = "Standard"
)

// Pipeline runs the consolidation and annotation engine against one
// configured master store.
type Pipeline struct {
	cfg    *config.Config
	rules  []ledger.Rule
	logger *slog.Logger
}

// New creates a pipeline. A nil rule set means the built-in rules;
// a nil logger means slog's default.
func New(cfg *config.Config, rules []ledger.Rule, logger *slog.Logger) *Pipeline {
	if rules == nil {
		rules = ledger.BuiltinRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, rules: rules, logger: logger}
}

// RunResult summarizes one full pipeline run.
type RunResult struct {
	RunID       string            `json:"run_id"`
	Snapshot    string            `json:"snapshot"`
	Written     []string          `json:"written"`
	Excluded    []string          `json:"excluded,omitempty"`
	Annotations []project.Result  `json:"annotations"`
	Skipped     []ledger.Skipped  `json:"skipped,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	Synced      bool              `json:"synced,omitempty"`
}

// Run executes the full pipeline. On failure the prior master state
// is preserved: both store backends stage the whole workbook and
// commit atomically.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.NewString()
	journal := p.openJournal()
	if journal != nil {
		defer journal.Close()
	}

	snapshotName, err := p.Latest()
	if err != nil {
		return nil, err
	}
	p.logger.Info("processing snapshot", "run_id", runID, "snapshot", snapshotName)

	if journal != nil {
		rec := store.RunRecord{
			ID:        runID,
			StartedAt: time.Now(),
			Snapshot:  snapshotName,
			Status:    store.RunStatusStarted,
		}
		if jerr := journal.RecordRun(ctx, rec); jerr != nil {
			p.logger.Warn("journal unavailable", "error", jerr)
			journal.Close()
			journal = nil
		}
	}

	res, err := p.run(ctx, runID, snapshotName, journal)
	if journal != nil {
		status := store.RunStatusCompleted
		fingerprint := ""
		if err != nil {
			status = store.RunStatusFailed
		} else {
			fingerprint = res.Fingerprint
		}
		if jerr := journal.FinishRun(ctx, runID, status, fingerprint); jerr != nil {
			p.logger.Warn("failed to finalize journal entry", "error", jerr)
		}
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, runID, snapshotName string, journal *store.Journal) (*RunResult, error) {
	snapshotPath := filepath.Join(p.cfg.Storage.DataDir, snapshotName)
	snapshot, err := store.NewXLSX(snapshotPath).Load(ctx)
	if err != nil {
		return nil, readError("load snapshot "+snapshotName, err)
	}

	masterStore, err := store.Open(p.cfg.Storage.MasterPath)
	if err != nil {
		return nil, readError("open master store", err)
	}
	defer masterStore.Close()
	if xs, ok := masterStore.(*store.XLSX); ok {
		xs.FormatSource = snapshotPath
	}

	master, err := masterStore.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		master = nil
	} else if err != nil {
		return nil, readError("load master workbook", err)
	}

	merged, conRes := consolidate.Consolidate(master, snapshot, consolidate.ExcludeGraphSheets)
	p.logger.Info("consolidated snapshot",
		"written", len(conRes.Written), "excluded", len(conRes.Excluded))

	annotations, skipped, err := p.annotate(merged)
	if err != nil {
		return nil, err
	}
	if journal != nil && len(skipped) > 0 {
		if jerr := journal.RecordSkipped(ctx, runID, skipped); jerr != nil {
			p.logger.Warn("failed to journal skipped entries", "error", jerr)
		}
	}
	for _, s := range skipped {
		p.logger.Warn("skipped malformed ledger entry",
			"kind", s.Kind, "day", s.Day, "reason", s.Reason)
	}

	if err := masterStore.Save(ctx, merged); err != nil {
		return nil, writeError("save master workbook", err)
	}

	fingerprint, err := table.Fingerprint(merged)
	if err != nil {
		return nil, fmt.Errorf("fingerprint master: %w", err)
	}

	result := &RunResult{
		RunID:       runID,
		Snapshot:    snapshotName,
		Written:     conRes.Written,
		Excluded:    conRes.Excluded,
		Annotations: annotations,
		Skipped:     skipped,
		Fingerprint: fingerprint,
	}

	// Remote sync is outside the core contract: a failure is logged,
	// never fatal, and never rolls back the run.
	if p.cfg.Remote != "" {
		if err := p.SyncRemote(ctx, p.cfg.Remote); err != nil {
			p.logger.Warn("remote sync failed", "remote", p.cfg.Remote, "error", err)
		} else {
			result.Synced = true
		}
	}

	return result, nil
}

// Latest returns the snapshot file the selector would pick.
func (p *Pipeline) Latest() (string, error) {
	entries, err := os.ReadDir(p.cfg.Storage.DataDir)
	if err != nil {
		return "", readError("read data folder "+p.cfg.Storage.DataDir, err)
	}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".xlsx") {
			continue
		}
		candidates = append(candidates, e.Name())
	}
	name, ok := consolidate.SelectLatest(candidates)
	if !ok {
		return "", &RunError{
			Code:    ErrCodeNotFound,
			Message: "no snapshot files in " + p.cfg.Storage.DataDir,
		}
	}
	return name, nil
}

// Consolidate merges the latest snapshot into the master store
// without annotating. Useful when the ledger rules are being revised
// and a re-annotation pass will follow.
func (p *Pipeline) Consolidate(ctx context.Context) (string, *consolidate.Result, error) {
	snapshotName, err := p.Latest()
	if err != nil {
		return "", nil, err
	}
	snapshotPath := filepath.Join(p.cfg.Storage.DataDir, snapshotName)
	snapshot, err := store.NewXLSX(snapshotPath).Load(ctx)
	if err != nil {
		return "", nil, readError("load snapshot "+snapshotName, err)
	}

	masterStore, err := store.Open(p.cfg.Storage.MasterPath)
	if err != nil {
		return "", nil, readError("open master store", err)
	}
	defer masterStore.Close()
	if xs, ok := masterStore.(*store.XLSX); ok {
		xs.FormatSource = snapshotPath
	}

	master, err := masterStore.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		master = nil
	} else if err != nil {
		return "", nil, readError("load master workbook", err)
	}

	merged, res := consolidate.Consolidate(master, snapshot, consolidate.ExcludeGraphSheets)
	if err := masterStore.Save(ctx, merged); err != nil {
		return "", nil, writeError("save master workbook", err)
	}
	return snapshotName, res, nil
}

// Annotate loads the master, recomputes every attribute column, and
// saves the result. It is idempotent: re-running with unchanged
// inputs rewrites identical columns.
func (p *Pipeline) Annotate(ctx context.Context) ([]project.Result, error) {
	masterStore, err := store.Open(p.cfg.Storage.MasterPath)
	if err != nil {
		return nil, readError("open master store", err)
	}
	defer masterStore.Close()

	master, err := masterStore.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RunError{Code: ErrCodeNotFound, Message: "master store is empty", Err: err}
	} else if err != nil {
		return nil, readError("load master workbook", err)
	}

	annotations, skipped, err := p.annotate(master)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		p.logger.Warn("skipped malformed ledger entry",
			"kind", s.Kind, "day", s.Day, "reason", s.Reason)
	}

	if err := masterStore.Save(ctx, master); err != nil {
		return nil, writeError("save master workbook", err)
	}
	return annotations, nil
}

// annotate materializes every rule's column onto the Standard sheet
// in place and aggregates skipped ledger entries.
func (p *Pipeline) annotate(wb *table.Workbook) ([]project.Result, []ledger.Skipped, error) {
	history := wb.Sheet(SheetHistory)
	if history == nil {
		return nil, nil, NewMissingTableError(SheetHistory)
	}
	primary := wb.Sheet(SheetStandard)
	if primary == nil {
		return nil, nil, NewMissingTableError(SheetStandard)
	}

	entries, parseSkipped, err := ledger.ParseEntries(history.Table)
	if err != nil {
		return nil, nil, &RunError{Code: ErrCodeNotFound, Message: "ledger table malformed", Table: SheetHistory, Err: err}
	}

	var results []project.Result
	skipped := parseSkipped
	for _, rule := range p.rules {
		res, err := project.Annotate(primary.Table, entries, rule, p.defaultFor(rule.Kind))
		if err != nil {
			return nil, nil, fmt.Errorf("annotate %s: %w", rule.Kind, err)
		}
		results = append(results, *res)
		skipped = append(skipped, res.Skipped...)
	}
	return results, skipped, nil
}

// Export writes every attribute's extracted updates and per-day
// projections to a Parquet file for downstream analysis.
func (p *Pipeline) Export(ctx context.Context, out string) (int, error) {
	masterStore, err := store.Open(p.cfg.Storage.MasterPath)
	if err != nil {
		return 0, readError("open master store", err)
	}
	defer masterStore.Close()

	master, err := masterStore.Load(ctx)
	if err != nil {
		return 0, readError("load master workbook", err)
	}

	history := master.Sheet(SheetHistory)
	if history == nil {
		return 0, NewMissingTableError(SheetHistory)
	}
	primary := master.Sheet(SheetStandard)
	if primary == nil {
		return 0, NewMissingTableError(SheetStandard)
	}

	entries, _, err := ledger.ParseEntries(history.Table)
	if err != nil {
		return 0, &RunError{Code: ErrCodeNotFound, Message: "ledger table malformed", Table: SheetHistory, Err: err}
	}
	days, err := primaryDays(primary.Table)
	if err != nil {
		return 0, err
	}

	var records []store.SeriesRecord
	for _, rule := range p.rules {
		updates, _ := ledger.Extract(entries, rule)
		for _, u := range updates {
			records = append(records, store.SeriesRecord{
				Kind:   string(rule.Kind),
				Column: rule.Column,
				Source: store.SeriesSourceUpdate,
				Day:    int64(u.Day),
				Value:  u.Value,
			})
		}
		projected := project.Project(updates, days, p.defaultFor(rule.Kind))
		for _, d := range days {
			records = append(records, store.SeriesRecord{
				Kind:   string(rule.Kind),
				Column: rule.Column,
				Source: store.SeriesSourceProjection,
				Day:    int64(d),
				Value:  projected[d],
			})
		}
	}

	if err := store.WriteSeries(out, records); err != nil {
		return 0, writeError("export series", err)
	}
	return len(records), nil
}

// SyncRemote mirrors the master store into the target store.
func (p *Pipeline) SyncRemote(ctx context.Context, target string) error {
	src, err := store.Open(p.cfg.Storage.MasterPath)
	if err != nil {
		return readError("open master store", err)
	}
	defer src.Close()

	dst, err := store.Open(target)
	if err != nil {
		return writeError("open remote store "+target, err)
	}
	defer dst.Close()

	res, err := remote.Sync(ctx, src, dst)
	if err != nil {
		return err
	}
	p.logger.Info("synced master to remote", "remote", target,
		"created", len(res.Created), "replaced", len(res.Replaced), "deleted", len(res.Deleted))
	return nil
}

func (p *Pipeline) openJournal() *store.Journal {
	journal, err := store.OpenJournal(p.cfg.Storage.JournalPath)
	if err != nil {
		p.logger.Warn("run journal unavailable", "path", p.cfg.Storage.JournalPath, "error", err)
		return nil
	}
	return journal
}

func (p *Pipeline) defaultFor(kind ledger.Kind) float64 {
	switch kind {
	case ledger.KindPrice:
		return p.cfg.Defaults.Price
	case ledger.KindCapacity:
		return p.cfg.Defaults.Allocation
	case ledger.KindInitialBatch:
		return p.cfg.Defaults.InitialBatch
	case ledger.KindFinalBatch:
		return p.cfg.Defaults.FinalBatch
	}
	return 0
}

// primaryDays returns the distinct days of the primary table,
// ascending.
func primaryDays(t *table.Table) ([]int, error) {
	dayIdx := t.ColumnIndex(ledger.DayColumn)
	if dayIdx < 0 {
		return nil, NewMissingTableError(ledger.DayColumn)
	}
	seen := make(map[int]bool)
	var days []int
	for _, row := range t.Rows {
		if d, ok := table.CellInt(row[dayIdx]); ok && !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Ints(days)
	return days, nil
}
