package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultReferenceURL points at the SPARK tutorial the tools are modelled on
	DefaultReferenceURL = "https://github.com/xzhoulab/SPARK/blob/master/docs/pages/02_SPARK_Example.md"
	// DefaultDBPath is the default directory for the run history database
	DefaultDBPath = "~/.spark-mcp"
)

// Config holds server configuration loaded from the environment
type Config struct {
	// Rscript is the interpreter used to run engine scripts
	Rscript string `env:"SPARK_RSCRIPT" envDefault:"Rscript"`
	// ScriptDir contains create_spark_object.R, spark_vc.R and spark_test.R
	ScriptDir string `env:"SPARK_SCRIPT_DIR" envDefault:"r_scripts/02_spark_example"`
	// TempDir receives engine artifacts; empty means os.TempDir()
	TempDir string `env:"SPARK_TEMP_DIR"`
	// DBPath is the directory holding the run history database
	DBPath string `env:"SPARK_DB_PATH" envDefault:"~/.spark-mcp"`
	// HistoryDisabled turns off run recording
	HistoryDisabled bool `env:"SPARK_HISTORY_DISABLED" envDefault:"false"`
	// ReferenceURL is echoed in every tool response
	ReferenceURL string `env:"SPARK_REFERENCE_URL" envDefault:"https://github.com/xzhoulab/SPARK/blob/master/docs/pages/02_SPARK_Example.md"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize expands the home directory and resolves the script directory
func (c *Config) normalize() error {
	if c.Rscript == "" {
		return fmt.Errorf("SPARK_RSCRIPT must not be empty")
	}

	dbPath, err := expandHome(c.DBPath)
	if err != nil {
		return err
	}
	c.DBPath = dbPath

	scriptDir, err := expandHome(c.ScriptDir)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(scriptDir) {
		abs, err := filepath.Abs(scriptDir)
		if err != nil {
			return fmt.Errorf("failed to resolve script directory: %w", err)
		}
		scriptDir = abs
	}
	c.ScriptDir = scriptDir

	if c.ReferenceURL == "" {
		c.ReferenceURL = DefaultReferenceURL
	}
	return nil
}

// DBFile returns the path of the run history database file
func (c *Config) DBFile() string {
	return filepath.Join(c.DBPath, "runs.db")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
