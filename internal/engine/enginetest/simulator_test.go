package enginetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/spark-mcp/internal/engine"
	"github.com/dshills/spark-mcp/internal/table"
)

func TestSimulator_Pipeline(t *testing.T) {
	dir := t.TempDir()
	counts := filepath.Join(dir, "counts.csv")
	locations := filepath.Join(dir, "location.csv")
	require.NoError(t, WriteCounts(counts, 30, 20, 7))
	require.NoError(t, WriteLocations(locations, 20))

	handle := (&Simulator{}).Handler()
	object := filepath.Join(dir, "object.rds")
	fitted := filepath.Join(dir, "fitted.rds")
	results := filepath.Join(dir, "results.csv")

	require.NoError(t, handle(engine.NewCommand("Rscript", "create_spark_object.R").
		Flag("counts", counts).
		Flag("location", locations).
		Float("percentage", 0.1).
		Int("min_total_counts", 10).
		Int("seed", 42).
		Flag("output", object)))

	summary, err := table.Read(filepath.Join(dir, "object_summary.csv"))
	require.NoError(t, err)
	nGenes, err := summary.Int(0, "n_genes")
	require.NoError(t, err)

	parsed, err := ReadCounts(counts)
	require.NoError(t, err)
	genes, _, _ := Filter(parsed, 0.1, 10)
	assert.Equal(t, len(genes), int(nGenes))

	require.NoError(t, handle(engine.NewCommand("Rscript", "spark_vc.R").
		Flag("spark_object", object).
		Flag("output", fitted)))

	ds, err := readDataset(fitted)
	require.NoError(t, err)
	assert.True(t, ds.Fitted)
	assert.Len(t, ds.Genes, int(nGenes))

	require.NoError(t, handle(engine.NewCommand("Rscript", "spark_test.R").
		Flag("spark_object", fitted).
		Int("seed", 42).
		Flag("output", results)))

	tested, err := readDataset(filepath.Join(dir, "results.rds"))
	require.NoError(t, err)
	assert.True(t, tested.Fitted)

	tbl, err := table.Read(results)
	require.NoError(t, err)
	assert.Equal(t, int(nGenes), tbl.Len())
}

func TestSimulator_TestRequiresFittedObject(t *testing.T) {
	dir := t.TempDir()
	object := filepath.Join(dir, "object.rds")
	require.NoError(t, writeDataset(object, &dataset{Genes: []string{"Gene1"}, Spots: 3}))

	err := (&Simulator{}).Handler()(engine.NewCommand("Rscript", "spark_test.R").
		Flag("spark_object", object).
		Int("seed", 1).
		Flag("output", filepath.Join(dir, "results.csv")))

	var exitErr *engine.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}
