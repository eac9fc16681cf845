package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// DefaultListLimit applies when RunFilter.Limit is not positive
const DefaultListLimit = 20

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode so concurrent tool calls don't block readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Run operations

// RecordRun inserts a run. An empty ID is filled with a new UUID and a zero
// StartedAt with the current time.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()

	query := `
		INSERT INTO runs (id, tool, params, status, exit_code, duration_ms, artifact_path, error, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Tool, run.Params, run.Status, run.ExitCode, run.DurationMs,
		run.ArtifactPath, run.Error, run.StartedAt, now)
	if err != nil {
		var existing string
		if s.db.QueryRowContext(ctx, "SELECT id FROM runs WHERE id = ?", run.ID).Scan(&existing) == nil {
			return fmt.Errorf("run %s: %w", run.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to record run: %w", err)
	}
	run.CreatedAt = now
	return nil
}

const runColumns = `id, tool, params, status, exit_code, duration_ms, artifact_path, error, started_at, created_at`

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.Tool, &run.Params, &run.Status, &run.ExitCode, &run.DurationMs,
		&run.ArtifactPath, &run.Error, &run.StartedAt, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun returns a run by ID
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (s *SQLiteStorage) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []interface{}{}
	if filter.Tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, filter.Tool)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Status operations

// GetStats counts runs per tool and outcome
func (s *SQLiteStorage) GetStats(ctx context.Context) (*RunStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tool, status, COUNT(*) FROM runs GROUP BY tool, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &RunStats{ByTool: make(map[string]ToolStats)}
	for rows.Next() {
		var tool, status string
		var count int
		if err := rows.Scan(&tool, &status, &count); err != nil {
			return nil, err
		}
		ts := stats.ByTool[tool]
		switch status {
		case StatusSucceeded:
			ts.Succeeded += count
		case StatusFailed:
			ts.Failed += count
		}
		stats.ByTool[tool] = ts
		stats.TotalRuns += count
	}
	return stats, rows.Err()
}
