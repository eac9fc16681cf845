// Package scratch allocates temporary artifact paths for engine output and
// guarantees each auxiliary file is removed at most once.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Artifact is a reserved temp file path handed to the engine as --output
type Artifact struct {
	path string
}

// Reserve creates an empty uniquely named file with the given suffix
// (e.g. ".rds") in dir. An empty dir uses os.TempDir().
func Reserve(dir, suffix string) (*Artifact, error) {
	f, err := os.CreateTemp(dir, "spark-*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve temp artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close temp artifact: %w", err)
	}
	return &Artifact{path: f.Name()}, nil
}

// Path returns the artifact path
func (a *Artifact) Path() string {
	return a.path
}

// Sibling returns the path sharing the artifact's base name with its
// extension replaced by suffix: /tmp/spark-1.rds + "_summary.csv" gives
// /tmp/spark-1_summary.csv
func (a *Artifact) Sibling(suffix string) string {
	return strings.TrimSuffix(a.path, filepath.Ext(a.path)) + suffix
}

// Aux returns a removable handle for a sibling file the engine writes
func (a *Artifact) Aux(suffix string) *File {
	return &File{Path: a.Sibling(suffix)}
}

// File is an auxiliary file that must be deleted once read
type File struct {
	Path string

	once sync.Once
	err  error
}

// Remove deletes the file. Only the first call touches the filesystem;
// a file the engine never wrote is not an error.
func (f *File) Remove() error {
	f.once.Do(func() {
		err := os.Remove(f.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.err = fmt.Errorf("failed to remove %s: %w", f.Path, err)
		}
	})
	return f.err
}
