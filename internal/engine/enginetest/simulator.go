package enginetest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/spark-mcp/internal/engine"
	"github.com/dshills/spark-mcp/internal/table"
)

// dataset is what the simulator stores in place of an R .rds object
type dataset struct {
	Genes      []string `json:"genes"`
	Spots      int      `json:"spots"`
	Fitted     bool     `json:"fitted"`
	Covariates string   `json:"covariates,omitempty"`
}

// Simulator mimics create_spark_object.R, spark_vc.R and spark_test.R
// closely enough for the wrapper to be exercised end to end. Gene and spot
// filtering follow SPARK's rules; p-values are drawn from the seed.
type Simulator struct {
	// Status is written to the spark_vc summary; defaults to "success"
	Status string
}

// Handler returns a HandlerFunc dispatching on the script name
func (s *Simulator) Handler() HandlerFunc {
	return func(cmd *engine.Command) error {
		switch ScriptName(cmd) {
		case "create_spark_object.R":
			return s.createObject(cmd)
		case "spark_vc.R":
			return s.vc(cmd)
		case "spark_test.R":
			return s.test(cmd)
		}
		return &engine.ExitError{Script: cmd.Script, Code: 2, Stderr: []string{"unknown script"}}
	}
}

func (s *Simulator) createObject(cmd *engine.Command) error {
	counts, err := readCounts(mustValue(cmd, "counts"))
	if err != nil {
		return fail(cmd, err)
	}
	if _, err := os.Stat(mustValue(cmd, "location")); err != nil {
		return fail(cmd, err)
	}
	percentage, err := strconv.ParseFloat(mustValue(cmd, "percentage"), 64)
	if err != nil {
		return fail(cmd, err)
	}
	minTotal, err := strconv.ParseInt(mustValue(cmd, "min_total_counts"), 10, 64)
	if err != nil {
		return fail(cmd, err)
	}

	genes, spots, total := Filter(counts, percentage, minTotal)
	ds := dataset{Spots: spots}
	for _, g := range genes {
		ds.Genes = append(ds.Genes, counts.Genes[g])
	}

	out := mustValue(cmd, "output")
	if err := writeDataset(out, &ds); err != nil {
		return fail(cmd, err)
	}
	return writeRows(sibling(out, "_summary.csv"), [][]string{
		{"n_genes", "n_spots", "total_counts"},
		{strconv.Itoa(len(genes)), strconv.Itoa(spots), strconv.FormatInt(total, 10)},
	})
}

func (s *Simulator) vc(cmd *engine.Command) error {
	ds, err := readDataset(mustValue(cmd, "spark_object"))
	if err != nil {
		return fail(cmd, err)
	}
	if cov, ok := cmd.Value("covariates"); ok {
		if _, err := os.Stat(cov); err != nil {
			return fail(cmd, err)
		}
		ds.Covariates = cov
	}
	ds.Fitted = true

	status := s.Status
	if status == "" {
		status = "success"
	}

	out := mustValue(cmd, "output")
	if err := writeDataset(out, ds); err != nil {
		return fail(cmd, err)
	}
	return writeRows(sibling(out, "_summary.csv"), [][]string{
		{"n_genes_fitted", "status"},
		{strconv.Itoa(len(ds.Genes)), status},
	})
}

func (s *Simulator) test(cmd *engine.Command) error {
	ds, err := readDataset(mustValue(cmd, "spark_object"))
	if err != nil {
		return fail(cmd, err)
	}
	if !ds.Fitted {
		return fail(cmd, fmt.Errorf("object has not been fitted"))
	}
	seed, err := strconv.ParseUint(mustValue(cmd, "seed"), 10, 64)
	if err != nil {
		return fail(cmd, err)
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	rows := [][]string{{"gene", "combined_pvalue", "adjusted_pvalue"}}
	for _, g := range ds.Genes {
		p := rng.Float64() * rng.Float64()
		adj := p * float64(len(ds.Genes)) / 4
		if adj > 1 {
			adj = 1
		}
		rows = append(rows, []string{g, strconv.FormatFloat(p, 'g', -1, 64), strconv.FormatFloat(adj, 'g', -1, 64)})
	}

	out := mustValue(cmd, "output")
	if err := writeDataset(sibling(out, ".rds"), ds); err != nil {
		return fail(cmd, err)
	}
	return writeRows(out, rows)
}

// Counts is a parsed genes x spots count matrix
type Counts struct {
	Genes  []string
	Values [][]int64
}

// Filter applies SPARK's filtering: genes expressed in at least percentage
// of spots, then spots with at least minTotal counts over retained genes.
// It returns retained gene indices, retained spot count and total counts.
func Filter(c *Counts, percentage float64, minTotal int64) (genes []int, spots int, total int64) {
	nSpots := 0
	if len(c.Values) > 0 {
		nSpots = len(c.Values[0])
	}
	for g, row := range c.Values {
		expressed := 0
		for _, v := range row {
			if v > 0 {
				expressed++
			}
		}
		if nSpots > 0 && float64(expressed) >= percentage*float64(nSpots) {
			genes = append(genes, g)
		}
	}
	for sp := 0; sp < nSpots; sp++ {
		var sum int64
		for _, g := range genes {
			sum += c.Values[g][sp]
		}
		if sum >= minTotal {
			spots++
			total += sum
		}
	}
	return genes, spots, total
}

func readCounts(path string) (*Counts, error) {
	tbl, err := table.Read(path)
	if err != nil {
		return nil, err
	}
	c := &Counts{}
	for _, row := range tbl.Rows {
		c.Genes = append(c.Genes, row[0])
		values := make([]int64, len(row)-1)
		for i, cell := range row[1:] {
			if values[i], err = strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err != nil {
				return nil, err
			}
		}
		c.Values = append(c.Values, values)
	}
	return c, nil
}

func readDataset(path string) (*dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("not a SPARK object: %w", err)
	}
	return &ds, nil
}

func writeDataset(path string, ds *dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteCounts writes a synthetic genes x spots matrix drawn from seed
func WriteCounts(path string, nGenes, nSpots int, seed uint64) error {
	rng := rand.New(rand.NewPCG(seed, 1))
	header := []string{"gene"}
	for sp := 0; sp < nSpots; sp++ {
		header = append(header, fmt.Sprintf("spot%d", sp+1))
	}
	rows := [][]string{header}
	for g := 0; g < nGenes; g++ {
		row := []string{fmt.Sprintf("Gene%d", g+1)}
		// Sparsity varies per gene so the percentage filter has work to do
		density := rng.Float64() * 0.4
		for sp := 0; sp < nSpots; sp++ {
			v := 0
			if rng.Float64() < density {
				v = 1 + rng.IntN(20)
			}
			row = append(row, strconv.Itoa(v))
		}
		rows = append(rows, row)
	}
	return writeRows(path, rows)
}

// WriteLocations writes an nSpots x 2 coordinate table
func WriteLocations(path string, nSpots int) error {
	rows := [][]string{{"x", "y"}}
	for sp := 0; sp < nSpots; sp++ {
		rows = append(rows, []string{strconv.Itoa(sp % 10), strconv.Itoa(sp / 10)})
	}
	return writeRows(path, rows)
}

// ReadCounts exposes the simulator's count parser to tests
func ReadCounts(path string) (*Counts, error) {
	return readCounts(path)
}

func mustValue(cmd *engine.Command, flag string) string {
	v, _ := cmd.Value(flag)
	return v
}

func sibling(path, suffix string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		return path[:i] + suffix
	}
	return path + suffix
}

func fail(cmd *engine.Command, err error) error {
	return &engine.ExitError{Script: cmd.Script, Code: 1, Stderr: []string{"Error: " + err.Error()}}
}
