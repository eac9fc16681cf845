// Package enginetest provides in-process stand-ins for the SPARK engine.
package enginetest

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/dshills/spark-mcp/internal/engine"
)

// HandlerFunc simulates one engine script run
type HandlerFunc func(cmd *engine.Command) error

// Fake is a Runner that records every command and delegates to Handler
type Fake struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []*engine.Command
}

// Run records cmd and invokes the handler
func (f *Fake) Run(_ context.Context, cmd *engine.Command) (*engine.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Handler == nil {
		return &engine.Result{}, nil
	}
	if err := f.Handler(cmd); err != nil {
		code := 1
		var exitErr *engine.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
		}
		return &engine.Result{ExitCode: code}, err
	}
	return &engine.Result{}, nil
}

// Calls returns the recorded commands
func (f *Fake) Calls() []*engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*engine.Command(nil), f.calls...)
}

// Last returns the most recent command or nil
func (f *Fake) Last() *engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// Fail returns a handler that exits with code after writing stderr lines
func Fail(code int, stderr ...string) HandlerFunc {
	return func(cmd *engine.Command) error {
		return &engine.ExitError{Script: cmd.Script, Code: code, Stderr: stderr}
	}
}

// ScriptName returns the base name of the script cmd runs
func ScriptName(cmd *engine.Command) string {
	return filepath.Base(cmd.Script)
}
