package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SPARK_RSCRIPT", "SPARK_SCRIPT_DIR", "SPARK_TEMP_DIR", "SPARK_DB_PATH", "SPARK_HISTORY_DISABLED", "SPARK_REFERENCE_URL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "Rscript", cfg.Rscript)
	assert.True(t, filepath.IsAbs(cfg.ScriptDir))
	assert.Equal(t, "02_spark_example", filepath.Base(cfg.ScriptDir))
	assert.Empty(t, cfg.TempDir)
	assert.Equal(t, filepath.Join(home, ".spark-mcp"), cfg.DBPath)
	assert.Equal(t, filepath.Join(home, ".spark-mcp", "runs.db"), cfg.DBFile())
	assert.False(t, cfg.HistoryDisabled)
	assert.Equal(t, DefaultReferenceURL, cfg.ReferenceURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPARK_RSCRIPT", "/opt/R/bin/Rscript")
	t.Setenv("SPARK_SCRIPT_DIR", dir)
	t.Setenv("SPARK_TEMP_DIR", dir)
	t.Setenv("SPARK_DB_PATH", dir)
	t.Setenv("SPARK_HISTORY_DISABLED", "true")
	t.Setenv("SPARK_REFERENCE_URL", "https://example.org/spark")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/R/bin/Rscript", cfg.Rscript)
	assert.Equal(t, dir, cfg.ScriptDir)
	assert.Equal(t, dir, cfg.TempDir)
	assert.Equal(t, dir, cfg.DBPath)
	assert.True(t, cfg.HistoryDisabled)
	assert.Equal(t, "https://example.org/spark", cfg.ReferenceURL)
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("SPARK_HISTORY_DISABLED", "maybe")

	_, err := Load()
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandHome(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
