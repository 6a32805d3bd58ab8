// Package history indexes completed runs in a local SQLite database so past
// verdicts stay queryable without re-parsing report files.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vigil-run/vigil/internal/report"
)

//go:embed schema.sql
var schemaSQL string

// Store is the run history index. Uses SQLite with WAL mode so readers never
// block a recording writer.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at the given path. Pragmas and
// schema are applied automatically; calling Open on an existing database is
// safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids SQLITE_BUSY.
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
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Entry is one indexed run.
type Entry struct {
	RunID      string
	SpecPath   string
	Title      string
	Backend    string
	Verdict    string
	Slices     int
	Failures   int
	ReportPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordRun indexes a completed run. Recording the same run ID twice is
// silently ignored.
func (s *Store) RecordRun(ctx context.Context, rep *report.Report, reportPath string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, spec_path, title, backend, verdict, slices, failures, report_path, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		rep.Meta.RunID,
		rep.Meta.SpecPath,
		rep.Meta.Title,
		rep.Meta.Backend,
		rep.Verdict,
		rep.Summary.Slices,
		rep.Summary.Failures,
		reportPath,
		rep.Meta.StartedAt.UTC().Format(time.RFC3339Nano),
		rep.Meta.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs across all specs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, spec_path, title, backend, verdict, slices, failures, report_path, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// RunsForSpec returns the most recent runs of one spec, newest first.
func (s *Store) RunsForSpec(ctx context.Context, specPath string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, spec_path, title, backend, verdict, slices, failures, report_path, started_at, finished_at
		FROM runs WHERE spec_path = ? ORDER BY started_at DESC LIMIT ?
	`, specPath, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs for spec: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished string
		if err := rows.Scan(&e.RunID, &e.SpecPath, &e.Title, &e.Backend, &e.Verdict,
			&e.Slices, &e.Failures, &e.ReportPath, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var err error
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return entries, nil
}
