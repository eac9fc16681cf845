package spark

import (
	"context"
	"fmt"

	"github.com/dshills/spark-mcp/internal/scratch"
	"github.com/dshills/spark-mcp/internal/table"
)

// VCParams are the inputs of FitNullModel
type VCParams struct {
	// ObjectRDS is the path returned by CreateObject
	ObjectRDS string
	// CovariatesCSV is optional; empty omits --covariates entirely
	CovariatesCSV string
	// NumCore is passed through to the engine as a parallelism hint
	NumCore int
	Verbose bool
	Seed    int
}

// Validate checks parameter ranges
func (p VCParams) Validate() error {
	if p.ObjectRDS == "" {
		return invalid("spark_object_rds is required")
	}
	if p.NumCore < 1 {
		return invalid("num_core must be at least 1, got %d", p.NumCore)
	}
	return nil
}

// VCResult describes the fitted null model
type VCResult struct {
	FittedObjectPath string
	NGenesFitted     int64
	Status           string
}

// FitNullModel estimates the null-model variance components with spark_vc.R
func (c *Client) FitNullModel(ctx context.Context, p VCParams) (*VCResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out, err := scratch.Reserve(c.opts.TempDir, ".rds")
	if err != nil {
		return nil, err
	}
	summary := out.Aux("_summary.csv")
	defer removeAux(summary)

	cmd := c.command(ScriptVC).
		Flag("spark_object", p.ObjectRDS).
		Int("num_core", p.NumCore).
		Bool("verbose", p.Verbose).
		Int("seed", p.Seed).
		Flag("output", out.Path()).
		FlagIf("covariates", p.CovariatesCSV)

	if _, err := c.runner.Run(ctx, cmd); err != nil {
		discard(out)
		return nil, fmt.Errorf("spark_vc: %w", err)
	}

	res, err := readVCSummary(summary)
	if err != nil {
		discard(out)
		return nil, fmt.Errorf("spark_vc: %w", err)
	}
	res.FittedObjectPath = out.Path()
	return res, nil
}

func readVCSummary(summary *scratch.File) (*VCResult, error) {
	tbl, err := table.Read(summary.Path)
	if err != nil {
		return nil, err
	}
	if err := summary.Remove(); err != nil {
		return nil, err
	}

	var res VCResult
	if res.NGenesFitted, err = tbl.Int(0, "n_genes_fitted"); err != nil {
		return nil, err
	}
	if res.Status, err = tbl.String(0, "status"); err != nil {
		return nil, err
	}
	return &res, nil
}
