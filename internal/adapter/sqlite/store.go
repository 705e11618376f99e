// Package sqlite keeps the history of runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// timeLayout sorts lexically in time order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded invocation.
type Run struct {
	ID         string
	Manifest   string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NodeRecord is the terminal report of one node of a run.
type NodeRecord struct {
	NodeID  string
	Kind    string
	Phase   string
	Message string
	Elapsed time.Duration
}

// Store is the run history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set history db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set history db busy timeout: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	manifest TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
)`); err != nil {
		return fmt.Errorf("initialize runs schema: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS node_results (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	node_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	phase TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, node_id)
)`); err != nil {
		return fmt.Errorf("initialize node results schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, manifest string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Manifest:  manifest,
		Status:    StatusRunning,
		StartedAt: s.now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, manifest, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Manifest, run.Status, run.StartedAt.Format(timeLayout),
	); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, s.now().UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: run not found", runID)
	}
	return nil
}

// RecordNode stores the terminal report of a node. Reporting a node twice
// replaces the earlier record.
func (s *Store) RecordNode(ctx context.Context, runID string, rec NodeRecord) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO node_results (run_id, seq, node_id, kind, phase, message, elapsed_ms)
		 VALUES (?, (SELECT COUNT(*) FROM node_results WHERE run_id = ?), ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, node_id) DO UPDATE SET
		 kind = excluded.kind,
		 phase = excluded.phase,
		 message = excluded.message,
		 elapsed_ms = excluded.elapsed_ms`,
		runID, runID, rec.NodeID, rec.Kind, rec.Phase, rec.Message, rec.Elapsed.Milliseconds(),
	); err != nil {
		return fmt.Errorf("record node %s: %w", rec.NodeID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manifest, status, started_at, COALESCE(finished_at, '') FROM runs
		 ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Manifest, &run.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", run.ID, err)
		}
		if finished != "" {
			if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
				return nil, fmt.Errorf("parse finished_at of run %s: %w", run.ID, err)
			}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, bool, error) {
	var run Run
	var started, finished string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, manifest, status, started_at, COALESCE(finished_at, '') FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Manifest, &run.Status, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("query run %s: %w", runID, err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, false, fmt.Errorf("parse started_at of run %s: %w", runID, err)
	}
	if finished != "" {
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return Run{}, false, fmt.Errorf("parse finished_at of run %s: %w", runID, err)
		}
	}
	return run, true, nil
}

// NodeResults returns a run's node records in the order they finished.
func (s *Store) NodeResults(ctx context.Context, runID string) ([]NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, kind, phase, message, elapsed_ms FROM node_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list node results of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]NodeRecord, 0)
	for rows.Next() {
		var rec NodeRecord
		var elapsedMS int64
		if err := rows.Scan(&rec.NodeID, &rec.Kind, &rec.Phase, &rec.Message, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan node result row: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node result rows: %w", err)
	}
	return out, nil
}
