// Package history persists finished job runs so operators can see what the
// daemon did after the fact. The store is append-mostly; the daemon is its
// only writer.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"faceframe/internal/jobs"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped on any schema change. History is advisory data, so
// a mismatched database is simply an error telling the user to delete it.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different build.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Run is one recorded job execution.
type Run struct {
	ID         int64
	Kind       jobs.Kind
	Folder     string
	Provider   string
	Result     jobs.Result
	Message    string
	Current    int
	Total      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the SQLite-backed run log.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record appends one finished job to the log and returns its row id.
func (s *Store) Record(ctx context.Context, outcome jobs.Outcome) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (kind, folder, provider, result, message, current, total, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(outcome.Kind),
		outcome.Folder,
		nullableString(outcome.Provider),
		string(outcome.Result),
		nullableString(outcome.Message),
		outcome.Progress.Current,
		outcome.Progress.Total,
		outcome.Started.UTC().Format(time.RFC3339Nano),
		outcome.Finished.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record job run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read job run id: %w", err)
	}
	return id, nil
}

// Recent returns the most recently finished runs, newest first. A limit of
// zero or less falls back to 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, folder, provider, result, message, current, total, started_at, finished_at
		FROM job_runs
		ORDER BY finished_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job runs: %w", err)
	}
	return runs, nil
}

// Clear removes every recorded run.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM job_runs"); err != nil {
		return fmt.Errorf("clear job runs: %w", err)
	}
	return nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run                 Run
		kind, result        string
		provider, message   sql.NullString
		startedAt, finished string
	)
	if err := rows.Scan(&run.ID, &kind, &run.Folder, &provider, &result, &message,
		&run.Current, &run.Total, &startedAt, &finished); err != nil {
		return Run{}, fmt.Errorf("scan job run: %w", err)
	}
	run.Kind = jobs.Kind(kind)
	run.Result = jobs.Result(result)
	run.Provider = provider.String
	run.Message = message.String
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
