package spark

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/dshills/spark-mcp/internal/engine"
	"github.com/dshills/spark-mcp/internal/scratch"
)

// Engine scripts, resolved against Options.ScriptDir
const (
	ScriptCreateObject = "create_spark_object.R"
	ScriptVC           = "spark_vc.R"
	ScriptTest         = "spark_test.R"
)

const (
	// DefaultSeed matches the seed the tutorial uses
	DefaultSeed = 42
	// FDRThreshold is the adjusted p-value cutoff for significance
	FDRThreshold = 0.05
	// PreviewSize is the number of top genes returned by TestPatterns
	PreviewSize = 10
)

// ErrInvalidParams is wrapped by parameter validation failures
var ErrInvalidParams = errors.New("invalid parameters")

// Options configures a Client
type Options struct {
	// Rscript is the interpreter binary
	Rscript string
	// ScriptDir holds the three engine scripts
	ScriptDir string
	// TempDir receives artifacts; empty uses os.TempDir()
	TempDir string
}

// Client runs the three SPARK stages against an engine Runner.
// A Client holds no per-call state and is safe for concurrent use.
type Client struct {
	runner engine.Runner
	opts   Options
}

// NewClient creates a client
func NewClient(runner engine.Runner, opts Options) *Client {
	if opts.Rscript == "" {
		opts.Rscript = "Rscript"
	}
	return &Client{runner: runner, opts: opts}
}

// command starts a command for the named engine script
func (c *Client) command(script string) *engine.Command {
	return engine.NewCommand(c.opts.Rscript, filepath.Join(c.opts.ScriptDir, script))
}

// removeAux deletes an auxiliary table, logging rather than failing
func removeAux(f *scratch.File) {
	if err := f.Remove(); err != nil {
		log.Printf("Warning: %v", err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
