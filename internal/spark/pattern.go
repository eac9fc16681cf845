package spark

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/dshills/spark-mcp/internal/scratch"
	"github.com/dshills/spark-mcp/internal/table"
)

// PatternParams are the inputs of TestPatterns
type PatternParams struct {
	// FittedObjectRDS is the path returned by FitNullModel
	FittedObjectRDS string
	// CheckPositive validates kernel matrices are positive definite
	CheckPositive bool
	Verbose       bool
	Seed          int
}

// Validate checks required parameters
func (p PatternParams) Validate() error {
	if p.FittedObjectRDS == "" {
		return invalid("fitted_spark_object_rds is required")
	}
	return nil
}

// GeneResult is one row of the engine's result table
type GeneResult struct {
	Gene           string  `json:"gene"`
	CombinedPValue float64 `json:"combined_pvalue"`
	AdjustedPValue float64 `json:"adjusted_pvalue"`
}

// PatternResult summarizes the spatial pattern test
type PatternResult struct {
	// TestedObjectPath is the companion .rds the engine leaves behind
	TestedObjectPath string
	NGenesTested     int
	// NSignificant counts genes with adjusted p-value below FDRThreshold
	NSignificant int
	// Preview holds the PreviewSize genes with the smallest adjusted p-value
	Preview []GeneResult
	// Summary statistics over the full table; nil when no value is defined
	MinAdjustedPValue    *float64
	MedianCombinedPValue *float64
}

// TestPatterns runs spark_test.R against a fitted model and summarizes the
// per-gene result table, which is deleted once read
func (c *Client) TestPatterns(ctx context.Context, p PatternParams) (*PatternResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out, err := scratch.Reserve(c.opts.TempDir, ".csv")
	if err != nil {
		return nil, err
	}
	results := &scratch.File{Path: out.Path()}
	defer removeAux(results)
	tested := out.Sibling(".rds")

	cmd := c.command(ScriptTest).
		Flag("spark_object", p.FittedObjectRDS).
		Bool("check_positive", p.CheckPositive).
		Bool("verbose", p.Verbose).
		Int("seed", p.Seed).
		Flag("output", out.Path())

	if _, err := c.runner.Run(ctx, cmd); err != nil {
		removeAux(&scratch.File{Path: tested})
		return nil, fmt.Errorf("spark_test: %w", err)
	}

	genes, err := readResults(results)
	if err != nil {
		removeAux(&scratch.File{Path: tested})
		return nil, fmt.Errorf("spark_test: %w", err)
	}

	res := Summarize(genes)
	res.TestedObjectPath = tested
	return res, nil
}

func readResults(results *scratch.File) ([]GeneResult, error) {
	tbl, err := table.Read(results.Path)
	if err != nil {
		return nil, err
	}
	if err := results.Remove(); err != nil {
		return nil, err
	}
	if err := tbl.Require("gene", "combined_pvalue", "adjusted_pvalue"); err != nil {
		return nil, err
	}

	genes := make([]GeneResult, tbl.Len())
	for i := range genes {
		g := &genes[i]
		if g.Gene, err = tbl.String(i, "gene"); err != nil {
			return nil, err
		}
		if g.CombinedPValue, err = tbl.Float(i, "combined_pvalue"); err != nil {
			return nil, err
		}
		if g.AdjustedPValue, err = tbl.Float(i, "adjusted_pvalue"); err != nil {
			return nil, err
		}
	}
	return genes, nil
}

// Summarize counts significant genes and selects the preview. Genes with a
// missing adjusted p-value are never significant and never previewed.
func Summarize(genes []GeneResult) *PatternResult {
	res := &PatternResult{NGenesTested: len(genes)}

	ranked := make([]GeneResult, 0, len(genes))
	var adjusted, combined stats.Float64Data
	for _, g := range genes {
		if !math.IsNaN(g.CombinedPValue) {
			combined = append(combined, g.CombinedPValue)
		}
		if math.IsNaN(g.AdjustedPValue) {
			continue
		}
		if g.AdjustedPValue < FDRThreshold {
			res.NSignificant++
		}
		adjusted = append(adjusted, g.AdjustedPValue)
		ranked = append(ranked, g)
	}

	slices.SortStableFunc(ranked, func(a, b GeneResult) int {
		switch {
		case a.AdjustedPValue < b.AdjustedPValue:
			return -1
		case a.AdjustedPValue > b.AdjustedPValue:
			return 1
		}
		return 0
	})
	if len(ranked) > PreviewSize {
		ranked = ranked[:PreviewSize]
	}
	res.Preview = ranked

	if v, err := stats.Min(adjusted); err == nil {
		res.MinAdjustedPValue = &v
	}
	if v, err := stats.Median(combined); err == nil {
		res.MedianCombinedPValue = &v
	}
	return res
}
