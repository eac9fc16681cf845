package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.RecordRun(context.Background(), &Run{Tool: "spark_vc", Status: StatusSucceeded}))
	require.NoError(t, first.Close())

	// Reopening must not re-run migrations or lose data
	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	runs, err := second.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRun(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &Run{
		Tool:         "create_spark_object",
		Params:       `{"percentage":0.1}`,
		Status:       StatusSucceeded,
		DurationMs:   1234,
		ArtifactPath: "/tmp/spark-1.rds",
		StartedAt:    started,
	}
	require.NoError(t, storage.RecordRun(ctx, run))

	_, err := uuid.Parse(run.ID)
	assert.NoError(t, err, "ID should be a UUID")
	assert.False(t, run.CreatedAt.IsZero())

	got, err := storage.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Tool, got.Tool)
	assert.Equal(t, run.Params, got.Params)
	assert.Equal(t, run.Status, got.Status)
	assert.Equal(t, run.DurationMs, got.DurationMs)
	assert.Equal(t, run.ArtifactPath, got.ArtifactPath)
	assert.True(t, started.Equal(got.StartedAt), "started_at round trip: %v", got.StartedAt)
}

func TestRecordRun_Failed(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	run := &Run{
		Tool:     "spark_test",
		Status:   StatusFailed,
		ExitCode: 1,
		Error:    "engine script spark_test.R exited with status 1",
	}
	require.NoError(t, storage.RecordRun(ctx, run))

	got, err := storage.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, run.Error, got.Error)
	assert.Empty(t, got.ArtifactPath)
}

func TestRecordRun_Duplicate(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	run := &Run{ID: "fixed-id", Tool: "spark_vc", Status: StatusSucceeded}
	require.NoError(t, storage.RecordRun(ctx, run))

	err := storage.RecordRun(ctx, &Run{ID: "fixed-id", Tool: "spark_vc", Status: StatusFailed})
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestGetRun_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetRun(context.Background(), "missing")
	assert.Equal(t, ErrNotFound, err)
}

func TestListRuns(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tools := []string{"create_spark_object", "spark_vc", "spark_test", "spark_vc", "spark_vc"}
	for i, tool := range tools {
		require.NoError(t, storage.RecordRun(ctx, &Run{
			ID:     fmt.Sprintf("run-%d", i),
			Tool:   tool,
			Status: StatusSucceeded,
		}))
	}

	t.Run("most recent first", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 5)
		assert.Equal(t, "run-4", runs[0].ID)
		assert.Equal(t, "run-0", runs[4].ID)
	})

	t.Run("tool filter", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, RunFilter{Tool: "spark_vc"})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		for _, r := range runs {
			assert.Equal(t, "spark_vc", r.Tool)
		}
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, RunFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-3", runs[1].ID)
	})

	t.Run("unknown tool", func(t *testing.T) {
		runs, err := storage.ListRuns(ctx, RunFilter{Tool: "nope"})
		require.NoError(t, err)
		assert.NotNil(t, runs)
		assert.Empty(t, runs)
	})
}

func TestGetStats(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	for _, r := range []Run{
		{Tool: "spark_vc", Status: StatusSucceeded},
		{Tool: "spark_vc", Status: StatusFailed},
		{Tool: "spark_vc", Status: StatusSucceeded},
		{Tool: "spark_test", Status: StatusFailed},
	} {
		r := r
		require.NoError(t, storage.RecordRun(ctx, &r))
	}

	stats, err := storage.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalRuns)
	assert.Equal(t, ToolStats{Succeeded: 2, Failed: 1}, stats.ByTool["spark_vc"])
	assert.Equal(t, ToolStats{Failed: 1}, stats.ByTool["spark_test"])
}

func TestMigrations(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	v, err := currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	// Re-applying is a no-op
	require.NoError(t, ApplyMigrations(ctx, storage.db))

	require.NoError(t, RollbackMigration(ctx, storage.db))
	v, err = currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, RollbackMigration(ctx, storage.db))
	v, err = currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())

	assert.Error(t, RollbackMigration(ctx, storage.db))

	require.NoError(t, ApplyMigrations(ctx, storage.db))
	v, err = currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}
