package table

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRead_Summary(t *testing.T) {
	path := writeCSV(t, "\"n_genes\",\"n_spots\",\"total_counts\"\n87,48,120455\n")

	tbl, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, path, tbl.Path)
	assert.Equal(t, 1, tbl.Len())
	assert.NoError(t, tbl.Require("n_genes", "n_spots", "total_counts"))

	n, err := tbl.Int(0, "n_genes")
	require.NoError(t, err)
	assert.Equal(t, int64(87), n)

	total, err := tbl.Int(0, "total_counts")
	require.NoError(t, err)
	assert.Equal(t, int64(120455), total)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingFile))
	assert.True(t, errors.Is(err, ErrParse))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"ragged rows", "a,b\n1,2,3\n"},
		{"bad quoting", "a,b\n\"1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))
		})
	}
}

func TestTable_MissingColumn(t *testing.T) {
	tbl, err := Parse(strings.NewReader("gene,combined_pvalue\nA,0.1\n"))
	require.NoError(t, err)

	err = tbl.Require("gene", "adjusted_pvalue")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "adjusted_pvalue")
}

func TestTable_NoRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader("n_genes_fitted,status\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	_, err = tbl.String(0, "status")
	assert.True(t, errors.Is(err, ErrNoRows))
}

func TestTable_Int(t *testing.T) {
	tbl, err := Parse(strings.NewReader("v\n12\n12.0\n12.5\nabc\n"))
	require.NoError(t, err)

	v, err := tbl.Int(0, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	v, err = tbl.Int(1, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = tbl.Int(2, "v")
	assert.True(t, errors.Is(err, ErrParse))

	_, err = tbl.Int(3, "v")
	assert.True(t, errors.Is(err, ErrParse))
}

func TestTable_Float(t *testing.T) {
	tbl, err := Parse(strings.NewReader("p\n0.01\n1e-8\nNA\nfoo\n"))
	require.NoError(t, err)

	v, err := tbl.Float(0, "p")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, v, 1e-12)

	v, err = tbl.Float(1, "p")
	require.NoError(t, err)
	assert.InDelta(t, 1e-8, v, 1e-20)

	v, err = tbl.Float(2, "p")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	_, err = tbl.Float(3, "p")
	assert.True(t, errors.Is(err, ErrParse))
}

func TestParse_RowNamesAndBOM(t *testing.T) {
	// R's write.csv emits an unnamed row-name column by default
	tbl, err := Parse(strings.NewReader("\ufeff\"\",\"gene\",\"adjusted_pvalue\"\n\"1\",\"Gene1\",0.5\n"))
	require.NoError(t, err)

	gene, err := tbl.String(0, "gene")
	require.NoError(t, err)
	assert.Equal(t, "Gene1", gene)
	assert.Equal(t, "", tbl.Header[0])
}
