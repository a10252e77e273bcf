// Package export writes the final catalog as CSV, JSONL or SQLite.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/placecrawl/internal/dedup"
	"github.com/ppiankov/placecrawl/internal/model"
)

// Format is an output format
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("unsupported output extension %q (use .csv, .jsonl or .db)", filepath.Ext(path))
	}
}

// Write exports records to path and returns how many were written.
// Records are passed through the source ID pass again so that no export
// carries a repeated or empty ID. report is stored by the SQLite format only.
func Write(ctx context.Context, path string, records []model.PlaceRecord, report *model.RunReport) (int, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return 0, err
	}
	unique, _ := dedup.UniqueBySourceID(records)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	if format == FormatSQLite {
		store, err := OpenSQLite(path)
		if err != nil {
			return 0, err
		}
		defer func() { _ = store.Close() }()
		return store.SaveRun(ctx, report, unique)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(f, unique)
	case FormatJSONL:
		err = WriteJSONL(f, unique)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close output: %w", closeErr)
	}
	if err != nil {
		return 0, err
	}
	return len(unique), nil
}
