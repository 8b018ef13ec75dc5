// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of harvest runs next to the result
// files, so earlier partial or failed harvests can be listed and resumed by
// hand.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

// DBFile is the ledger file name inside the output directory.
const DBFile = "runs.db"

const defaultLimit = 20

// Store manages the run ledger database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates dir/runs.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	path := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			status TEXT NOT NULL,
			error_kind TEXT,
			error TEXT,
			query TEXT NOT NULL,
			output_path TEXT NOT NULL,
			page_reached INTEGER,
			pages_fetched INTEGER,
			documents INTEGER,
			num_found INTEGER,
			conflicts INTEGER,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_output ON runs(output_path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run is one ledger row.
type Run struct {
	ID int64 `json:"id" yaml:"id"`
	types.RunManifest `yaml:",inline"`
}

// RecordRun appends the manifest of a finished run.
func (s *Store) RecordRun(ctx context.Context, m types.RunManifest) error {
	finished := ""
	if !m.FinishedAt.IsZero() {
		finished = m.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (status, error_kind, error, query, output_path,
			page_reached, pages_fetched, documents, num_found, conflicts,
			started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.Status), m.ErrorKind, m.Error, m.Query, m.OutputPath,
		m.PageReached, m.PagesFetched, m.Documents, m.NumFound, m.Conflicts,
		m.StartedAt.UTC().Format(time.RFC3339Nano), finished,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Status restricts the listing to one status when non-empty.
	Status types.RunStatus
	// Limit caps the number of rows; zero means 20.
	Limit int
}

// ListRuns returns recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `SELECT id, status, error_kind, error, query, output_path,
			page_reached, pages_fetched, documents, num_found, conflicts,
			started_at, finished_at
		FROM runs`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			status            string
			errKind, errText  sql.NullString
			started, finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &status, &errKind, &errText, &r.Query, &r.OutputPath,
			&r.PageReached, &r.PagesFetched, &r.Documents, &r.NumFound, &r.Conflicts,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Status = types.RunStatus(status)
		r.ErrorKind = errKind.String
		r.Error = errText.String
		r.StartedAt = parseTime(started.String)
		r.FinishedAt = parseTime(finished.String)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
