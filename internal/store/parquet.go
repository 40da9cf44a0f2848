package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// SeriesRecord is the Parquet schema for exported attribute series:
// one row per extracted update and one per projected day.
type SeriesRecord struct {
	Kind   string  `parquet:"kind"`
	Column string  `parquet:"column"`
	Source string  `parquet:"source"` // "update" or "projection"
	Day    int64   `parquet:"day"`
	Value  float64 `parquet:"value"`
}

// Series sources.
const (
	SeriesSourceUpdate     = "update"
	SeriesSourceProjection = "projection"
)

// WriteSeries writes attribute series records to a Parquet file,
// creating parent directories as needed.
func WriteSeries(path string, records []SeriesRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write series: %w", err)
	}
	return nil
}

// ReadSeries reads an exported series file back.
func ReadSeries(path string) ([]SeriesRecord, error) {
	records, err := parquet.ReadFile[SeriesRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	return records, nil
}
