package spark

import (
	"context"
	"fmt"

	"github.com/dshills/spark-mcp/internal/scratch"
	"github.com/dshills/spark-mcp/internal/table"
)

// ObjectParams are the inputs of CreateObject
type ObjectParams struct {
	// CountsCSV is a genes x spots count table; first column holds gene names
	CountsCSV string
	// LocationCSV holds spot coordinates. Row order must match the count
	// table's column order; this is not checked.
	LocationCSV string
	// Percentage keeps genes expressed in at least this fraction of spots
	Percentage float64
	// MinTotalCounts drops spots with fewer total counts
	MinTotalCounts int
	Seed           int
}

// Validate checks parameter ranges
func (p ObjectParams) Validate() error {
	if p.CountsCSV == "" {
		return invalid("counts_csv is required")
	}
	if p.LocationCSV == "" {
		return invalid("location_csv is required")
	}
	if p.Percentage < 0 || p.Percentage > 1 {
		return invalid("percentage must be between 0 and 1, got %g", p.Percentage)
	}
	if p.MinTotalCounts < 0 {
		return invalid("min_total_counts must be non-negative, got %d", p.MinTotalCounts)
	}
	return nil
}

// ObjectResult describes the filtered dataset
type ObjectResult struct {
	ObjectPath  string
	NGenes      int64
	NSpots      int64
	TotalCounts int64
}

// CreateObject filters the count matrix through create_spark_object.R and
// returns the path of the resulting SPARK object
func (c *Client) CreateObject(ctx context.Context, p ObjectParams) (*ObjectResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out, err := scratch.Reserve(c.opts.TempDir, ".rds")
	if err != nil {
		return nil, err
	}
	summary := out.Aux("_summary.csv")
	defer removeAux(summary)

	cmd := c.command(ScriptCreateObject).
		Flag("counts", p.CountsCSV).
		Flag("location", p.LocationCSV).
		Float("percentage", p.Percentage).
		Int("min_total_counts", p.MinTotalCounts).
		Int("seed", p.Seed).
		Flag("output", out.Path())

	if _, err := c.runner.Run(ctx, cmd); err != nil {
		discard(out)
		return nil, fmt.Errorf("create_spark_object: %w", err)
	}

	res, err := readObjectSummary(summary)
	if err != nil {
		discard(out)
		return nil, fmt.Errorf("create_spark_object: %w", err)
	}
	res.ObjectPath = out.Path()
	return res, nil
}

func readObjectSummary(summary *scratch.File) (*ObjectResult, error) {
	tbl, err := table.Read(summary.Path)
	if err != nil {
		return nil, err
	}
	if err := summary.Remove(); err != nil {
		return nil, err
	}

	var res ObjectResult
	if res.NGenes, err = tbl.Int(0, "n_genes"); err != nil {
		return nil, err
	}
	if res.NSpots, err = tbl.Int(0, "n_spots"); err != nil {
		return nil, err
	}
	if res.TotalCounts, err = tbl.Int(0, "total_counts"); err != nil {
		return nil, err
	}
	return &res, nil
}

// discard removes a primary artifact whose invocation failed
func discard(a *scratch.Artifact) {
	removeAux(&scratch.File{Path: a.Path()})
}
