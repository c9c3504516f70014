package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mbackup-go/internal/database/migrations"
	"mbackup-go/internal/mbackup"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements mbackup.History using SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens the history database at path and brings its schema
// up to date. path can be a file path or ":memory:" for in-memory database.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Scheduled runs of different kinds can overlap.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// RecordRun stores a finished run.
func (s *SQLiteHistory) RecordRun(run *mbackup.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, operation, kind, directory, status, message, deleted, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Operation, run.Kind, run.Directory, run.Status, run.Message,
		run.Deleted, run.Failed, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteHistory) RecentRuns(limit int) ([]*mbackup.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, kind, directory, status, message, deleted, failed, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*mbackup.Run
	for rows.Next() {
		var r mbackup.Run
		var started, finished time.Time
		if err := rows.Scan(&r.ID, &r.Operation, &r.Kind, &r.Directory, &r.Status, &r.Message,
			&r.Deleted, &r.Failed, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = started
		r.FinishedAt = finished
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path, or ":memory:".
func (s *SQLiteHistory) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteHistory) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteHistory implements mbackup.History interface
var _ mbackup.History = (*SQLiteHistory)(nil)
