// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists deck-run outcomes in a local SQLite index so
// past runs and their per-page failures can be inspected later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deck-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "deck.db"
)

// Run is one recorded deck generation run.
type Run struct {
	ID        int64
	Started   time.Time
	Finished  time.Time
	PlanPath  string
	PDFPath   string
	Succeeded int
	Failed    int
}

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at outputDir/index/deck.db,
// creating the schema if needed.
func Open(cfg types.HistoryConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.OutputDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			plan_path TEXT,
			pdf_path TEXT,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER,
			duration_ms INTEGER,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_run_id ON pages(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores a run and its page outcomes, returning the run ID.
func (s *Store) RecordRun(ctx context.Context, run Run, pages []types.PageResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started, finished, plan_path, pdf_path, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Started.UTC().Format(time.RFC3339Nano),
		run.Finished.UTC().Format(time.RFC3339Nano),
		run.PlanPath, run.PDFPath, run.Succeeded, run.Failed)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for _, p := range pages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (run_id, filename, status, attempts, duration_ms, error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, p.Filename, string(p.Status), p.Attempts, p.Duration.Milliseconds(), p.Error); err != nil {
			return 0, fmt.Errorf("inserting page %s: %w", p.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started, finished, plan_path, pdf_path, succeeded, failed
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.PlanPath, &r.PDFPath, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Finished, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunPages returns the page outcomes of one run, in insertion order.
func (s *Store) RunPages(ctx context.Context, runID int64) ([]types.PageResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, status, attempts, duration_ms, error
		 FROM pages WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []types.PageResult
	for rows.Next() {
		var p types.PageResult
		var status string
		var durationMS int64
		if err := rows.Scan(&p.Filename, &status, &p.Attempts, &durationMS, &p.Error); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.Status = types.PageStatus(status)
		p.Duration = time.Duration(durationMS) * time.Millisecond
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// PrintRuns writes a run listing to w.
func PrintRuns(w io.Writer, runs []Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no recorded runs")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%4d  %s  %d OK / %d failed  %s\n",
			r.ID, r.Started.Local().Format("2006-01-02 15:04"), r.Succeeded, r.Failed, r.PDFPath)
	}
}
