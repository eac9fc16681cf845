package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/spark-mcp/internal/spark"
)

// Tool names
const (
	ToolCreateObject = "create_spark_object"
	ToolVC           = "spark_vc"
	ToolTest         = "spark_test"
	ToolListRuns     = "list_runs"
)

func seedProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Random seed for reproducibility. Use same seed to get identical results.",
		"default":     spark.DefaultSeed,
	}
}

// createObjectTool returns the tool definition for create_spark_object
func createObjectTool() mcp.Tool {
	return mcp.Tool{
		Name: ToolCreateObject,
		Description: "Create SPARK object from count matrix and spatial coordinates. " +
			"Filters lowly expressed genes and low-quality spots; the object holds the filtered " +
			"data and library sizes for normalization.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"counts_csv": map[string]interface{}{
					"type": "string",
					"description": "Path to CSV file with expression count matrix (genes × spots). " +
						"First column should be gene names, remaining columns are spot IDs.",
				},
				"location_csv": map[string]interface{}{
					"type": "string",
					"description": "Path to CSV file with spatial coordinates (spots × 2). " +
						"Row order must match column order in counts_csv.",
				},
				"percentage": map[string]interface{}{
					"type":        "number",
					"description": "Retain genes expressed in at least this fraction of spots (0.0-1.0)",
					"default":     0.1,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"min_total_counts": map[string]interface{}{
					"type":        "integer",
					"description": "Minimum total counts per spot to retain. Typical value: 10-100 depending on data sparsity.",
					"default":     10,
					"minimum":     0,
				},
				"seed": seedProperty(),
			},
			Required: []string{"counts_csv", "location_csv"},
		},
	}
}

// vcTool returns the tool definition for spark_vc
func vcTool() mcp.Tool {
	return mcp.Tool{
		Name: ToolVC,
		Description: "Estimate SPARK model parameters under the null hypothesis of no spatial pattern. " +
			"Prepares the model for hypothesis testing with spark_test.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"spark_object_rds": map[string]interface{}{
					"type":        "string",
					"description": "Path to SPARK object RDS file (from create_spark_object output)",
				},
				"covariates_csv": map[string]interface{}{
					"type": "string",
					"description": "Path to CSV file with covariates matrix (spots × covariates). " +
						"Omit to fit the model without covariates.",
				},
				"num_core": map[string]interface{}{
					"type":        "integer",
					"description": "Number of CPU cores for parallel processing. Typical range: 1-8.",
					"default":     1,
					"minimum":     1,
				},
				"verbose": map[string]interface{}{
					"type":        "boolean",
					"description": "Print detailed progress messages during model fitting",
					"default":     false,
				},
				"seed": seedProperty(),
			},
			Required: []string{"spark_object_rds"},
		},
	}
}

// testTool returns the tool definition for spark_test
func testTool() mcp.Tool {
	return mcp.Tool{
		Name: ToolTest,
		Description: "Test genes for spatial expression patterns. Tests multiple kernels (Gaussian, Periodic), " +
			"combines results and returns per-gene p-values for the most significant genes.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fitted_spark_object_rds": map[string]interface{}{
					"type":        "string",
					"description": "Path to fitted SPARK object RDS file (from spark_vc output)",
				},
				"check_positive": map[string]interface{}{
					"type": "boolean",
					"description": "Validate that kernel matrices are positive definite. " +
						"False may speed up testing but risks numerical issues.",
					"default": true,
				},
				"verbose": map[string]interface{}{
					"type":        "boolean",
					"description": "Print detailed progress messages during hypothesis testing",
					"default":     false,
				},
				"seed": seedProperty(),
			},
			Required: []string{"fitted_spark_object_rds"},
		},
	}
}

// listRunsTool returns the tool definition for list_runs
func listRunsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolListRuns,
		Description: "List recent SPARK tool invocations with their outcome and artifact paths",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"tool": map[string]interface{}{
					"type":        "string",
					"description": "Only list runs of this tool",
					"enum":        []string{ToolCreateObject, ToolVC, ToolTest},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of runs to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}
