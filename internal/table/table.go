// Package table reads the delimited summary and result tables written by
// the SPARK engine scripts.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrParse is wrapped by every failure to read engine output
	ErrParse = errors.New("engine output could not be parsed")
	// ErrMissingFile means the engine did not write the expected table
	ErrMissingFile = fmt.Errorf("%w: output file missing", ErrParse)
	// ErrMissingColumn means a required column is absent from the header
	ErrMissingColumn = fmt.Errorf("%w: missing column", ErrParse)
	// ErrNoRows means a summary table has a header but no data row
	ErrNoRows = fmt.Errorf("%w: no data rows", ErrParse)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed CSV file with a header row
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Read parses the CSV file at path. The first record is the header.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Parse reads a CSV stream with a header row
func Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrParse)
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	return &Table{Header: header, Rows: records[1:], index: index}, nil
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column
func (t *Table) Column(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	return i, nil
}

// Require checks that every named column is present
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if _, err := t.Column(name); err != nil {
			return err
		}
	}
	return nil
}

// String returns the raw cell at row in the named column
func (t *Table) String(row int, name string) (string, error) {
	col, err := t.Column(name)
	if err != nil {
		return "", err
	}
	if row < 0 || row >= len(t.Rows) {
		return "", fmt.Errorf("%w: row %d of %d", ErrNoRows, row, len(t.Rows))
	}
	return strings.TrimSpace(t.Rows[row][col]), nil
}

// Int returns the cell as an integer. Integral floats ("120.0") are accepted
// since R may write counts in numeric form.
func (t *Table) Int(row int, name string) (int64, error) {
	s, err := t.String(row, name)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: column %q row %d: %q is not an integer", ErrParse, name, row, s)
	}
	return int64(f), nil
}

// Float returns the cell as a float. R missing values (NA, NaN, empty)
// become NaN.
func (t *Table) Float(row int, name string) (float64, error) {
	s, err := t.String(row, name)
	if err != nil {
		return 0, err
	}
	if isMissing(s) {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: column %q row %d: %q is not a number", ErrParse, name, row, s)
	}
	return f, nil
}

func isMissing(s string) bool {
	switch s {
	case "", "NA", "NaN", "nan", "NULL":
		return true
	}
	return false
}
