package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/placecrawl/internal/model"
)

// SQLiteStore keeps crawl runs and their places in one SQLite file.
// Every run adds a row to runs; places are keyed by (run_id, source_id).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	connStr := path
	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		accepted INTEGER NOT NULL DEFAULT 0,
		final INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		report_json TEXT
	);

	CREATE TABLE IF NOT EXISTS places (
		run_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		name TEXT NOT NULL,
		raw_category TEXT,
		address TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		source_name TEXT NOT NULL,
		keyword TEXT,
		image_urls TEXT,
		position INTEGER NOT NULL,
		PRIMARY KEY (run_id, source_id)
	);

	CREATE INDEX IF NOT EXISTS idx_places_name ON places(name);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the run and its places in one transaction and returns the
// number of places inserted. A nil report stores the places under a fresh run.
func (s *SQLiteStore) SaveRun(ctx context.Context, report *model.RunReport, records []model.PlaceRecord) (int, error) {
	if report == nil {
		report = model.NewRunReport("", time.Now())
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var finished any
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt.UTC()
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, source, started_at, finished_at, accepted, final, cancelled, report_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	finished_at=excluded.finished_at,
	accepted=excluded.accepted,
	final=excluded.final,
	cancelled=excluded.cancelled,
	report_json=excluded.report_json`,
		report.ID, report.Source, report.StartedAt.UTC(), finished,
		report.Accepted, report.Final, report.Cancelled, string(reportJSON))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO places (
	run_id, source_id, name, raw_category, address, latitude, longitude,
	source_name, keyword, image_urls, position
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for i, r := range records {
		images, err := json.Marshal(r.ImageURLs)
		if err != nil {
			return 0, fmt.Errorf("marshal images: %w", err)
		}
		res, err := stmt.ExecContext(ctx, report.ID, r.SourceID, r.Name, r.RawCategory, r.Address,
			r.Latitude, r.Longitude, r.SourceName, r.Keyword, string(images), i)
		if err != nil {
			return 0, fmt.Errorf("insert place %q: %w", r.SourceID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Places returns the places of one run in catalog order
func (s *SQLiteStore) Places(ctx context.Context, runID string) ([]model.PlaceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT source_id, name, raw_category, address, latitude, longitude, source_name, keyword, image_urls
FROM places WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.PlaceRecord
	for rows.Next() {
		var (
			r        model.PlaceRecord
			category sql.NullString
			keyword  sql.NullString
			images   sql.NullString
		)
		if err := rows.Scan(&r.SourceID, &r.Name, &category, &r.Address, &r.Latitude, &r.Longitude,
			&r.SourceName, &keyword, &images); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		r.RawCategory = category.String
		r.Keyword = keyword.String
		if images.Valid && images.String != "" && images.String != "null" {
			if err := json.Unmarshal([]byte(images.String), &r.ImageURLs); err != nil {
				return nil, fmt.Errorf("decode images of %q: %w", r.SourceID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunIDs lists stored runs, newest first
func (s *SQLiteStore) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
