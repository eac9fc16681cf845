// Package mcp implements the Model Context Protocol (MCP) server for SPARK.
//
// The server exposes the three stages of a SPARK spatial-pattern analysis
// as tools, plus a read-only view of past invocations:
//   - create_spark_object: Filter a count matrix into a SPARK object
//   - spark_vc: Fit the null model on a SPARK object
//   - spark_test: Test genes for spatial expression patterns
//   - list_runs: List recorded tool invocations
//
// Each pipeline tool runs one R script through Rscript, blocks until it
// exits, reads the summary or result CSV the script writes next to its
// output, deletes that CSV and returns a JSON document. The stages chain
// through file paths: create_spark_object → spark_vc → spark_test.
//
// # Tool: create_spark_object
//
//	Request:
//	{
//	  "name": "create_spark_object",
//	  "arguments": {
//	    "counts_csv": "/data/counts.csv",
//	    "location_csv": "/data/location.csv",
//	    "percentage": 0.1,
//	    "min_total_counts": 10,
//	    "seed": 42
//	  }
//	}
//
//	Response:
//	{
//	  "message": "SPARK object created with 10182 genes and 250 spots",
//	  "spark_object_path": "/tmp/spark-1234.rds",
//	  "n_genes": 10182,
//	  "n_spots": 250,
//	  "total_counts": 2784107
//	}
//
// # Tool: spark_vc
//
// covariates_csv is optional. When it is omitted the script is invoked
// without --covariates at all.
//
//	Request:
//	{
//	  "name": "spark_vc",
//	  "arguments": {
//	    "spark_object_rds": "/tmp/spark-1234.rds",
//	    "num_core": 4
//	  }
//	}
//
//	Response:
//	{
//	  "fitted_spark_object_path": "/tmp/spark-5678.rds",
//	  "n_genes_fitted": 10182,
//	  "status": "success"
//	}
//
// # Tool: spark_test
//
// n_significant_genes counts every gene with adjusted p-value below 0.05;
// results_preview holds only the ten smallest.
//
//	Request:
//	{
//	  "name": "spark_test",
//	  "arguments": {
//	    "fitted_spark_object_rds": "/tmp/spark-5678.rds",
//	    "check_positive": true
//	  }
//	}
//
//	Response:
//	{
//	  "tested_spark_object_path": "/tmp/spark-9012.rds",
//	  "n_genes_tested": 10182,
//	  "n_significant_genes": 290,
//	  "results_preview": [
//	    {"gene": "SCGB2A2", "combined_pvalue": 1.2e-30, "adjusted_pvalue": 6.1e-27}
//	  ]
//	}
//
// # Error Handling
//
// Tool failures are returned as tool results with isError set. The
// structuredContent (mirrored as JSON text) holds the code, the message and,
// for engine failures, the exit code and stderr tail:
//
//	{"code": -32010, "message": "...", "data": {"exit_code": 1, "stderr": ["..."]}}
//
// Codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error
//   - -32010: Engine exited non-zero or could not be started
//   - -32011: Engine output missing or malformed
//   - -32012: Run history disabled (list_runs only)
//
// Nothing is retried and no partial result is returned.
//
// # Logging
//
// The server logs to stderr (stdout is reserved for MCP protocol). Engine
// stdout and stderr are forwarded line by line with an "[engine <script>]"
// prefix.
package mcp
