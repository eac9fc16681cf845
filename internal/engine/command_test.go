package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_Args(t *testing.T) {
	cmd := NewCommand("Rscript", "/scripts/create_spark_object.R").
		Flag("counts", "/data/counts.csv").
		Float("percentage", 0.1).
		Int("min_total_counts", 10).
		Int("seed", 42).
		Bool("verbose", false).
		Bool("check_positive", true)

	assert.Equal(t, []string{
		"/scripts/create_spark_object.R",
		"--counts", "/data/counts.csv",
		"--percentage", "0.1",
		"--min_total_counts", "10",
		"--seed", "42",
		"--verbose", "FALSE",
		"--check_positive", "TRUE",
	}, cmd.Args())
}

func TestCommand_FlagIf(t *testing.T) {
	cmd := NewCommand("Rscript", "spark_vc.R").
		FlagIf("covariates", "").
		FlagIf("output", "/tmp/out.rds")

	_, ok := cmd.Value("covariates")
	assert.False(t, ok)

	v, ok := cmd.Value("output")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/out.rds", v)
	assert.Len(t, cmd.Flags(), 1)
}

func TestCommand_Float(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.1, "0.1"},
		{0, "0"},
		{1, "1"},
		{0.25, "0.25"},
		{0.00001, "1e-05"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			v, _ := NewCommand("R", "s").Float("p", tt.in).Value("p")
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestCommand_FlagsIsCopy(t *testing.T) {
	cmd := NewCommand("R", "s").Flag("a", "1")
	flags := cmd.Flags()
	flags[0].Value = "changed"

	v, _ := cmd.Value("a")
	assert.Equal(t, "1", v)
}
