package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/spark-mcp/internal/engine"
	"github.com/dshills/spark-mcp/internal/spark"
	"github.com/dshills/spark-mcp/internal/storage"
	"github.com/dshills/spark-mcp/internal/table"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEngineFailed  = -32010 // Engine exited non-zero or could not start
	ErrorCodeParseFailed   = -32011 // Engine output missing or malformed
	ErrorCodeHistoryOff    = -32012 // Run history is disabled
)

// handleCreateObject handles the create_spark_object tool invocation
func (s *Server) handleCreateObject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	countsCSV, err := requireString(args, "counts_csv")
	if err != nil {
		return nil, err
	}
	locationCSV, err := requireString(args, "location_csv")
	if err != nil {
		return nil, err
	}

	percentage, err := getFloatDefault(args, "percentage", 0.1)
	if err != nil {
		return nil, err
	}
	minTotalCounts, err := getIntDefault(args, "min_total_counts", 10)
	if err != nil {
		return nil, err
	}
	seed, err := getIntDefault(args, "seed", spark.DefaultSeed)
	if err != nil {
		return nil, err
	}

	params := spark.ObjectParams{
		CountsCSV:      countsCSV,
		LocationCSV:    locationCSV,
		Percentage:     percentage,
		MinTotalCounts: minTotalCounts,
		Seed:           seed,
	}

	started := time.Now()
	res, err := s.spark.CreateObject(ctx, params)
	if err != nil {
		s.recordRun(ctx, ToolCreateObject, args, started, "", err)
		return nil, toolError(err)
	}
	s.recordRun(ctx, ToolCreateObject, args, started, res.ObjectPath, nil)

	response := map[string]interface{}{
		"message":           fmt.Sprintf("SPARK object created with %d genes and %d spots", res.NGenes, res.NSpots),
		"reference":         s.reference,
		"spark_object_path": res.ObjectPath,
		"n_genes":           res.NGenes,
		"n_spots":           res.NSpots,
		"total_counts":      res.TotalCounts,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleVC handles the spark_vc tool invocation
func (s *Server) handleVC(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	objectRDS, err := requireString(args, "spark_object_rds")
	if err != nil {
		return nil, err
	}

	numCore, err := getIntDefault(args, "num_core", 1)
	if err != nil {
		return nil, err
	}
	verbose, err := getBoolDefault(args, "verbose", false)
	if err != nil {
		return nil, err
	}
	seed, err := getIntDefault(args, "seed", spark.DefaultSeed)
	if err != nil {
		return nil, err
	}

	// A null or missing covariates_csv both leave the flag off
	params := spark.VCParams{
		ObjectRDS:     objectRDS,
		CovariatesCSV: getStringDefault(args, "covariates_csv", ""),
		NumCore:       numCore,
		Verbose:       verbose,
		Seed:          seed,
	}

	started := time.Now()
	res, err := s.spark.FitNullModel(ctx, params)
	if err != nil {
		s.recordRun(ctx, ToolVC, args, started, "", err)
		return nil, toolError(err)
	}
	s.recordRun(ctx, ToolVC, args, started, res.FittedObjectPath, nil)

	response := map[string]interface{}{
		"message":                  fmt.Sprintf("Model parameters estimated for %d genes", res.NGenesFitted),
		"reference":                s.reference,
		"fitted_spark_object_path": res.FittedObjectPath,
		"n_genes_fitted":           res.NGenesFitted,
		"status":                   res.Status,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleTest handles the spark_test tool invocation
func (s *Server) handleTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	fittedRDS, err := requireString(args, "fitted_spark_object_rds")
	if err != nil {
		return nil, err
	}

	checkPositive, err := getBoolDefault(args, "check_positive", true)
	if err != nil {
		return nil, err
	}
	verbose, err := getBoolDefault(args, "verbose", false)
	if err != nil {
		return nil, err
	}
	seed, err := getIntDefault(args, "seed", spark.DefaultSeed)
	if err != nil {
		return nil, err
	}

	params := spark.PatternParams{
		FittedObjectRDS: fittedRDS,
		CheckPositive:   checkPositive,
		Verbose:         verbose,
		Seed:            seed,
	}

	started := time.Now()
	res, err := s.spark.TestPatterns(ctx, params)
	if err != nil {
		s.recordRun(ctx, ToolTest, args, started, "", err)
		return nil, toolError(err)
	}
	s.recordRun(ctx, ToolTest, args, started, res.TestedObjectPath, nil)

	preview := make([]map[string]interface{}, 0, len(res.Preview))
	for _, g := range res.Preview {
		preview = append(preview, map[string]interface{}{
			"gene":            g.Gene,
			"combined_pvalue": jsonFloat(g.CombinedPValue),
			"adjusted_pvalue": jsonFloat(g.AdjustedPValue),
		})
	}

	response := map[string]interface{}{
		"message": fmt.Sprintf("Spatial pattern testing completed. Found %d significant genes (FDR < %g).",
			res.NSignificant, spark.FDRThreshold),
		"reference":                s.reference,
		"tested_spark_object_path": res.TestedObjectPath,
		"n_genes_tested":           res.NGenesTested,
		"n_significant_genes":      res.NSignificant,
		"results_preview":          preview,
	}
	if res.MinAdjustedPValue != nil {
		response["min_adjusted_pvalue"] = *res.MinAdjustedPValue
	}
	if res.MedianCombinedPValue != nil {
		response["median_combined_pvalue"] = *res.MedianCombinedPValue
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListRuns handles the list_runs tool invocation
func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	if s.history == nil {
		return nil, newMCPError(ErrorCodeHistoryOff, "run history is disabled", map[string]interface{}{
			"hint": "unset SPARK_HISTORY_DISABLED to record runs",
		})
	}

	limit, err := getIntDefault(args, "limit", storage.DefaultListLimit)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	tool := getStringDefault(args, "tool", "")
	if tool != "" && tool != ToolCreateObject && tool != ToolVC && tool != ToolTest {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid tool", map[string]interface{}{
			"param":   "tool",
			"value":   tool,
			"allowed": []string{ToolCreateObject, ToolVC, ToolTest},
		})
	}

	runs, err := s.history.ListRuns(ctx, storage.RunFilter{Tool: tool, Limit: limit})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
	}
	stats, err := s.history.GetStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get run stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(runs))
	for _, r := range runs {
		params := r.Params
		if params == "" {
			params = "{}"
		}
		item := map[string]interface{}{
			"id":          r.ID,
			"tool":        r.Tool,
			"status":      r.Status,
			"exit_code":   r.ExitCode,
			"duration_ms": r.DurationMs,
			"started_at":  r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			"params":      json.RawMessage(params),
		}
		if r.ArtifactPath != "" {
			item["artifact_path"] = r.ArtifactPath
		}
		if r.Error != "" {
			item["error"] = r.Error
		}
		items = append(items, item)
	}

	byTool := make(map[string]interface{}, len(stats.ByTool))
	for name, ts := range stats.ByTool {
		byTool[name] = map[string]interface{}{
			"succeeded": ts.Succeeded,
			"failed":    ts.Failed,
		}
	}

	response := map[string]interface{}{
		"runs":       items,
		"total_runs": stats.TotalRuns,
		"by_tool":    byTool,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// recordRun stores the outcome of a tool call. Failures are logged only.
func (s *Server) recordRun(ctx context.Context, tool string, args map[string]interface{}, started time.Time, artifact string, runErr error) {
	if s.history == nil {
		return
	}

	params, err := json.Marshal(args)
	if err != nil {
		params = []byte("{}")
	}

	run := &storage.Run{
		Tool:         tool,
		Params:       string(params),
		Status:       storage.StatusSucceeded,
		DurationMs:   time.Since(started).Milliseconds(),
		ArtifactPath: artifact,
		StartedAt:    started,
	}
	if runErr != nil {
		run.Status = storage.StatusFailed
		run.Error = runErr.Error()
		var exitErr *engine.ExitError
		if errors.As(runErr, &exitErr) {
			run.ExitCode = exitErr.Code
		}
	}

	if err := s.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("Warning: failed to record %s run: %v", tool, err)
	}
}

// Helper functions

// toolError maps spark, engine and table errors onto MCP error codes
func toolError(err error) error {
	var exitErr *engine.ExitError
	switch {
	case errors.Is(err, spark.ErrInvalidParams):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case errors.As(err, &exitErr):
		return newMCPError(ErrorCodeEngineFailed, err.Error(), map[string]interface{}{
			"exit_code": exitErr.Code,
			"stderr":    exitErr.Stderr,
		})
	case errors.Is(err, engine.ErrEngineStart), errors.Is(err, engine.ErrEngineFailed):
		return newMCPError(ErrorCodeEngineFailed, err.Error(), nil)
	case errors.Is(err, table.ErrParse):
		return newMCPError(ErrorCodeParseFailed, err.Error(), nil)
	default:
		return newMCPError(ErrorCodeInternalError, err.Error(), nil)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// Result renders the error as a tool result carrying code, message and data
func (e *MCPError) Result() *mcp.CallToolResult {
	payload := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Data != nil {
		payload["data"] = e.Data
	}
	result := mcp.NewToolResultStructured(payload, formatJSON(payload))
	result.IsError = true
	return result
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// jsonFloat maps NaN to null since JSON has no representation for it
func jsonFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	val, ok := raw.(bool)
	if !ok {
		return false, invalidParam(key, raw, "must be a boolean")
	}
	return val, nil
}

// getIntDefault extracts an integer parameter with a default value.
// Numbers with a fractional part are rejected rather than truncated.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	switch val := raw.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= math.MaxInt32 {
			return int(val), nil
		}
	}
	return 0, invalidParam(key, raw, "must be an integer")
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) (float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return defaultValue, nil
	}
	switch val := raw.(type) {
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			return val, nil
		}
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	}
	return 0, invalidParam(key, raw, "must be a number")
}

// invalidParam reports a parameter of the wrong type or shape
func invalidParam(key string, value interface{}, reason string) error {
	return newMCPError(ErrorCodeInvalidParams, key+" "+reason, map[string]interface{}{
		"param":  key,
		"value":  value,
		"reason": reason,
	})
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
