package storage

import (
	"context"
	"time"
)

// Run statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Storage defines the interface for persisting tool run history
type Storage interface {
	// Run operations
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// Status operations
	GetStats(ctx context.Context) (*RunStats, error)

	// Database operations
	Close() error
}

// Run represents one recorded tool invocation
type Run struct {
	ID           string
	Tool         string
	Params       string // JSON-encoded tool arguments
	Status       string
	ExitCode     int
	DurationMs   int64
	ArtifactPath string
	Error        string
	StartedAt    time.Time
	CreatedAt    time.Time
}

// RunFilter narrows ListRuns
type RunFilter struct {
	Tool  string // Empty matches every tool
	Limit int
}

// RunStats aggregates the history per tool
type RunStats struct {
	TotalRuns int
	ByTool    map[string]ToolStats
}

// ToolStats counts outcomes for one tool
type ToolStats struct {
	Succeeded int
	Failed    int
}
