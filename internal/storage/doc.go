// Package storage provides SQLite-based persistence for the tool run history.
//
// Every create_spark_object, spark_vc and spark_test call is recorded as a
// Run: tool name, JSON arguments, outcome, engine exit code, duration and the
// primary artifact path. The history is an audit trail only; it is never
// consulted to short-circuit a tool call.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migration versions (semver)
//   - runs: one row per tool invocation, ordered by an autoincrement seq
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("/home/me/.spark-mcp/runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.RecordRun(ctx, &storage.Run{
//	    Tool:   "spark_vc",
//	    Params: `{"num_core":4}`,
//	    Status: storage.StatusSucceeded,
//	})
//
//	runs, err := db.ListRuns(ctx, storage.RunFilter{Tool: "spark_vc", Limit: 10})
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_cgo switches to github.com/mattn/go-sqlite3.
package storage
