package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entry is one finished download.
type Entry struct {
	JobID      string
	SourceURL  string
	OutputPath string
	TotalSize  int64
	Segments   int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the history database at dbPath.
// ":memory:" gives a private in-memory database.
func Open(dbPath string) (*Store, error) {
	dsn := ":memory:"
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// scheduler workers write concurrently; one connection keeps sqlite happy
	// and keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT UNIQUE NOT NULL,
			source_url TEXT NOT NULL,
			output_path TEXT,
			total_size INTEGER NOT NULL DEFAULT 0,
			segments INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_finished ON downloads(finished_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (job_id, source_url, output_path, total_size, segments, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.SourceURL, e.OutputPath, e.TotalSize, e.Segments, e.Status, e.Error,
		e.StartedAt.UTC(), e.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record download %s: %w", e.JobID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, source_url, COALESCE(output_path, ''), total_size, segments, status, COALESCE(error, ''), started_at, finished_at
		FROM downloads ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.JobID, &e.SourceURL, &e.OutputPath, &e.TotalSize, &e.Segments,
			&e.Status, &e.Error, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
