package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTailLines is how many trailing stderr lines are kept for errors
	DefaultTailLines = 20
	// MaxLineBytes caps a forwarded line; the remainder is dropped
	MaxLineBytes = 64 * 1024
)

var (
	// ErrEngineFailed is wrapped by every non-zero engine exit
	ErrEngineFailed = errors.New("engine invocation failed")
	// ErrEngineStart is wrapped when the engine process cannot be started
	ErrEngineStart = errors.New("engine could not be started")
)

// Result describes a finished engine process
type Result struct {
	ExitCode int
	Duration time.Duration
	// Stderr holds the last lines the engine wrote to stderr
	Stderr []string
}

// Runner executes engine commands and blocks until they exit
type Runner interface {
	Run(ctx context.Context, cmd *Command) (*Result, error)
}

// ExitError reports a non-zero engine exit
type ExitError struct {
	Script string
	Code   int
	Stderr []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("engine script %s exited with status %d", filepath.Base(e.Script), e.Code)
	if n := len(e.Stderr); n > 0 {
		msg += ": " + e.Stderr[n-1]
	}
	return msg
}

// Unwrap lets errors.Is match ErrEngineFailed
func (e *ExitError) Unwrap() error {
	return ErrEngineFailed
}

// ExecRunner runs commands as local subprocesses. Engine stdout and stderr
// are forwarded to Logger line by line; stdout of this process stays free
// for the MCP transport.
type ExecRunner struct {
	Logger    *log.Logger
	TailLines int
}

// NewExecRunner creates a runner logging through the standard logger
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Logger: log.Default(), TailLines: DefaultTailLines}
}

// Run starts the command and waits for it to exit. Cancelling ctx does not
// stop a running engine; an invocation runs to completion or fails.
func (r *ExecRunner) Run(ctx context.Context, c *Command) (*Result, error) {
	cmd := exec.CommandContext(context.WithoutCancel(ctx), c.Program, c.Args()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %w", ErrEngineStart, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrEngineStart, err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEngineStart, c.Program, err)
	}

	prefix := "[engine " + filepath.Base(c.Script) + "] "
	tail := newTail(r.tailLines())

	// Both pipes must be drained before Wait
	var g errgroup.Group
	g.Go(func() error { return r.forward(stdout, prefix, nil) })
	g.Go(func() error { return r.forward(stderr, prefix, tail) })
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
		Stderr:   tail.lines(),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, &ExitError{Script: c.Script, Code: res.ExitCode, Stderr: res.Stderr}
		}
		return res, fmt.Errorf("%w: wait: %w", ErrEngineFailed, waitErr)
	}
	if drainErr != nil {
		r.logger().Printf("%sWarning: reading engine output: %v", prefix, drainErr)
	}
	return res, nil
}

func (r *ExecRunner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

func (r *ExecRunner) tailLines() int {
	if r.TailLines > 0 {
		return r.TailLines
	}
	return DefaultTailLines
}

// forward logs each line of rd and records it in t when t is non-nil. Lines
// longer than MaxLineBytes are truncated.
func (r *ExecRunner) forward(rd io.Reader, prefix string, t *tail) error {
	logger := r.logger()
	br := bufio.NewReaderSize(rd, 64*1024)

	var line []byte
	truncated := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if len(line) > 0 || truncated {
				r.emit(logger, prefix, line, truncated, t)
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			// Keep draining so the engine never blocks on a full pipe
			_, _ = io.Copy(io.Discard, rd)
			return err
		}

		if room := MaxLineBytes - len(line); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
				truncated = true
			}
			line = append(line, chunk...)
		} else if len(chunk) > 0 {
			truncated = true
		}
		if isPrefix {
			continue
		}

		r.emit(logger, prefix, line, truncated, t)
		line = line[:0]
		truncated = false
	}
}

func (r *ExecRunner) emit(logger *log.Logger, prefix string, line []byte, truncated bool, t *tail) {
	text := string(line)
	if truncated {
		text += " [truncated]"
	}
	logger.Print(prefix + text)
	if t != nil {
		t.add(text)
	}
}

// tail is a fixed-size ring of the most recent lines
type tail struct {
	buf  []string
	next int
	full bool
}

func newTail(n int) *tail {
	return &tail{buf: make([]string, n)}
}

func (t *tail) add(line string) {
	t.buf[t.next] = line
	t.next = (t.next + 1) % len(t.buf)
	if t.next == 0 {
		t.full = true
	}
}

func (t *tail) lines() []string {
	if !t.full {
		return append([]string(nil), t.buf[:t.next]...)
	}
	out := make([]string, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}
