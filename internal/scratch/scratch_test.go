package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve(t *testing.T) {
	dir := t.TempDir()

	a, err := Reserve(dir, ".rds")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(a.Path()))
	assert.True(t, strings.HasSuffix(a.Path(), ".rds"))
	assert.FileExists(t, a.Path())
}

func TestReserve_Unique(t *testing.T) {
	dir := t.TempDir()
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		a, err := Reserve(dir, ".csv")
		require.NoError(t, err)
		assert.False(t, seen[a.Path()], "duplicate path %s", a.Path())
		seen[a.Path()] = true
	}
}

func TestReserve_MissingDir(t *testing.T) {
	_, err := Reserve(filepath.Join(t.TempDir(), "missing"), ".rds")
	assert.Error(t, err)
}

func TestSibling(t *testing.T) {
	a := &Artifact{path: "/tmp/spark-123.rds"}
	assert.Equal(t, "/tmp/spark-123_summary.csv", a.Sibling("_summary.csv"))

	b := &Artifact{path: "/tmp/spark-456.csv"}
	assert.Equal(t, "/tmp/spark-456.rds", b.Sibling(".rds"))
}

func TestFileRemove(t *testing.T) {
	t.Run("removes existing file", func(t *testing.T) {
		a, err := Reserve(t.TempDir(), ".rds")
		require.NoError(t, err)

		aux := a.Aux("_summary.csv")
		require.NoError(t, os.WriteFile(aux.Path, []byte("n_genes\n1\n"), 0o600))

		require.NoError(t, aux.Remove())
		assert.NoFileExists(t, aux.Path)
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		aux := &File{Path: filepath.Join(t.TempDir(), "never-written.csv")}
		assert.NoError(t, aux.Remove())
	})

	t.Run("second call does not touch a recreated file", func(t *testing.T) {
		aux := &File{Path: filepath.Join(t.TempDir(), "table.csv")}
		require.NoError(t, os.WriteFile(aux.Path, []byte("x"), 0o600))

		require.NoError(t, aux.Remove())
		require.NoError(t, os.WriteFile(aux.Path, []byte("y"), 0o600))
		require.NoError(t, aux.Remove())

		assert.FileExists(t, aux.Path)
	})
}
