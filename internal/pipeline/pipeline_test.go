package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"opsledger/internal/config"
	"opsledger/internal/store"
	"opsledger/internal/table"
)

// snapshotWorkbook builds a daily snapshot with a primary table, a
// ledger, and a graphs sheet that must never reach the master.
func snapshotWorkbook() *table.Workbook {
	standard := table.NewTable("Day", "Units")
	standard.AppendRow(int64(1), int64(60))
	standard.AppendRow(int64(2), int64(55))
	standard.AppendRow(int64(3), int64(58))

	history := table.NewTable("Day", "Description")
	history.AppendRow(int64(2), "Updated price to $150.")
	history.AppendRow(int64(3), "Changed capacity allocation to high demand")

	graphs := table.NewTable("Chart")
	graphs.AppendRow("units-over-time")

	wb := table.NewWorkbook()
	wb.Put("Standard", standard)
	wb.Put("History", history)
	wb.Put("Metrics-Graphs", graphs)
	return wb
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = dir
	cfg.Storage.MasterPath = filepath.Join(dir, "Master.xlsx")
	cfg.Storage.JournalPath = filepath.Join(dir, "journal.db")
	return cfg
}

func writeSnapshot(t *testing.T, cfg *config.Config, name string) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(cfg.Storage.DataDir, name)
	require.NoError(t, store.NewXLSX(path).Save(ctx, snapshotWorkbook()))
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 7.xlsx")

	p := New(cfg, nil, discard())
	res, err := p.Run(ctx)
	require.NoError(t, err)

	require.Equal(t, "Day 7.xlsx", res.Snapshot)
	require.ElementsMatch(t, []string{"Standard", "History"}, res.Written)
	require.Equal(t, []string{"Metrics-Graphs"}, res.Excluded)
	require.Len(t, res.Annotations, 4)
	require.NotEmpty(t, res.Fingerprint)

	// The malformed capacity entry is reported, not fatal.
	require.Len(t, res.Skipped, 1)
	require.Equal(t, 3, res.Skipped[0].Day)

	ms := store.NewXLSX(cfg.Storage.MasterPath)
	master, err := ms.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, master.Sheet("Metrics-Graphs"))

	standard := master.Sheet("Standard")
	require.NotNil(t, standard)
	priceIdx := standard.ColumnIndex("Current Price")
	require.GreaterOrEqual(t, priceIdx, 0)

	// Day 1 predates every update and gets the default; the day 2
	// update covers days 2 and 3.
	wantPrice := []int{180, 150, 150}
	for i, row := range standard.Rows {
		got, ok := table.CellInt(row[priceIdx])
		require.True(t, ok, "row %d price cell %v", i, row[priceIdx])
		require.Equal(t, wantPrice[i], got)
	}

	// Capacity has no valid update, so every day holds the default.
	capIdx := standard.ColumnIndex("Capacity Allocation %")
	require.GreaterOrEqual(t, capIdx, 0)
	for _, row := range standard.Rows {
		got, ok := table.CellInt(row[capIdx])
		require.True(t, ok)
		require.Equal(t, 50, got)
	}
}

func TestRunJournalsOutcome(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 2.xlsx")

	p := New(cfg, nil, discard())
	res, err := p.Run(ctx)
	require.NoError(t, err)

	journal, err := store.OpenJournal(cfg.Storage.JournalPath)
	require.NoError(t, err)
	defer journal.Close()

	runs, err := journal.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, res.RunID, runs[0].ID)
	require.Equal(t, store.RunStatusCompleted, runs[0].Status)
	require.Equal(t, res.Fingerprint, runs[0].Fingerprint)
	require.Equal(t, "Day 2.xlsx", runs[0].Snapshot)

	skipped, err := journal.SkippedForRun(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	require.Equal(t, "matched trigger but no extractable value", skipped[0].Reason)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 4.xlsx")

	p := New(cfg, nil, discard())
	first, err := p.Run(ctx)
	require.NoError(t, err)
	second, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestRunSQLiteMaster(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.MasterPath = filepath.Join(cfg.Storage.DataDir, "master.db")
	writeSnapshot(t, cfg, "Day 1.xlsx")

	p := New(cfg, nil, discard())
	_, err := p.Run(ctx)
	require.NoError(t, err)

	ms, err := store.OpenSQLite(cfg.Storage.MasterPath)
	require.NoError(t, err)
	defer ms.Close()
	master, err := ms.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, master.Sheet("Standard"))
	require.GreaterOrEqual(t, master.Sheet("Standard").ColumnIndex("Final Batch Size"), 0)
}

func TestRunSyncsToRemote(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Remote = filepath.Join(cfg.Storage.DataDir, "remote.db")
	writeSnapshot(t, cfg, "Day 5.xlsx")

	p := New(cfg, nil, discard())
	res, err := p.Run(ctx)
	require.NoError(t, err)
	require.True(t, res.Synced)

	rs, err := store.OpenSQLite(cfg.Remote)
	require.NoError(t, err)
	defer rs.Close()
	mirror, err := rs.Load(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Standard", "History"}, mirror.Names())
}

func TestLatestSelection(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 3.xlsx")
	writeSnapshot(t, cfg, "Day 12.xlsx")
	// The master and a lock marker must never be selected.
	require.NoError(t, store.NewXLSX(cfg.Storage.MasterPath).Save(ctx, snapshotWorkbook()))

	p := New(cfg, nil, discard())
	name, err := p.Latest()
	require.NoError(t, err)
	require.Equal(t, "Day 12.xlsx", name)
}

func TestLatestEmptyFolder(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, discard())
	_, err := p.Latest()
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func TestRunMissingLedgerSheet(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	wb := table.NewWorkbook()
	standard := table.NewTable("Day", "Units")
	standard.AppendRow(int64(1), int64(60))
	wb.Put("Standard", standard)
	path := filepath.Join(cfg.Storage.DataDir, "Day 1.xlsx")
	require.NoError(t, store.NewXLSX(path).Save(ctx, wb))

	p := New(cfg, nil, discard())
	_, err := p.Run(ctx)
	require.Error(t, err)
	require.True(t, IsNotFound(err))

	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, SheetHistory, re.Table)
}

func TestConsolidateOnly(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 9.xlsx")

	p := New(cfg, nil, discard())
	name, res, err := p.Consolidate(ctx)
	require.NoError(t, err)
	require.Equal(t, "Day 9.xlsx", name)
	require.ElementsMatch(t, []string{"Standard", "History"}, res.Written)

	master, err := store.NewXLSX(cfg.Storage.MasterPath).Load(ctx)
	require.NoError(t, err)
	// No annotation pass ran.
	require.Equal(t, -1, master.Sheet("Standard").ColumnIndex("Current Price"))
}

func TestAnnotateExistingMaster(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 6.xlsx")

	p := New(cfg, nil, discard())
	_, _, err := p.Consolidate(ctx)
	require.NoError(t, err)

	results, err := p.Annotate(ctx)
	require.NoError(t, err)
	require.Len(t, results, 4)

	master, err := store.NewXLSX(cfg.Storage.MasterPath).Load(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, master.Sheet("Standard").ColumnIndex("Current Price"), 0)
}

func TestAnnotateEmptyMaster(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, discard())
	_, err := p.Annotate(context.Background())
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func TestExportSeries(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	writeSnapshot(t, cfg, "Day 8.xlsx")

	p := New(cfg, nil, discard())
	_, err := p.Run(ctx)
	require.NoError(t, err)

	out := filepath.Join(cfg.Storage.DataDir, "series.parquet")
	n, err := p.Export(ctx, out)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	records, err := store.ReadSeries(out)
	require.NoError(t, err)
	require.Len(t, records, n)

	// One price update plus a projection for each of the three days
	// and each of the four kinds.
	var updates, projections int
	for _, r := range records {
		switch r.Source {
		case store.SeriesSourceUpdate:
			updates++
		case store.SeriesSourceProjection:
			projections++
		}
	}
	require.Equal(t, 1, updates)
	require.Equal(t, 12, projections)
}
