// Package ingest loads riskgraph inputs from files: edge snapshots, tagged
// cases and idea batches. Malformed rows never abort a load; they are
// skipped and reported in the load result.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Benny93/riskgraph/internal/graph"
)

var (
	// ErrEmptyInput is returned when an input has no header row at all.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoColumns is returned when an edge header has fewer than two columns.
	ErrNoColumns = errors.New("edge file needs at least two columns")
)

// EdgeFields are the columns written by WriteEdgesCSV.
var EdgeFields = []string{"date", "from", "relation", "to", "weight"}

// RowError describes a skipped input row. Line is the CSV line number, or
// the element index for JSON input.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Columns records which header columns an edge file was read from.
// Optional columns are -1 when absent.
type Columns struct {
	Source   int `json:"source"`
	Target   int `json:"target"`
	Relation int `json:"relation"`
	Weight   int `json:"weight"`
	Date     int `json:"date"`
}

// EdgeLoad is the result of loading an edge file.
type EdgeLoad struct {
	Edges   []graph.Edge `json:"edges"`
	Columns Columns      `json:"columns"`
	Skipped []RowError   `json:"skipped,omitempty"`
}

// DetectColumns picks the source and target columns from a header:
// "source"/"target" if both exist, else "from"/"to", else the first two
// columns. Matching is case-insensitive.
func DetectColumns(header []string) (Columns, error) {
	if len(header) < 2 {
		return Columns{}, ErrNoColumns
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	lookup := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	cols := Columns{
		Source:   0,
		Target:   1,
		Relation: lookup("relation"),
		Weight:   lookup("weight"),
		Date:     lookup("date"),
	}
	switch {
	case lookup("source") >= 0 && lookup("target") >= 0:
		cols.Source, cols.Target = lookup("source"), lookup("target")
	case lookup("from") >= 0 && lookup("to") >= 0:
		cols.Source, cols.Target = lookup("from"), lookup("to")
	}
	return cols, nil
}

// LoadEdgesCSV reads an edge list with a header row.
func LoadEdgesCSV(r io.Reader) (*EdgeLoad, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := DetectColumns(header)
	if err != nil {
		return nil, err
	}

	load := &EdgeLoad{Columns: cols}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			load.Skipped = append(load.Skipped, RowError{Line: perr.Line, Reason: perr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading edges: %w", err)
		}

		line, _ := cr.FieldPos(0)
		edge, reason := parseEdge(row, cols)
		if reason != "" {
			load.Skipped = append(load.Skipped, RowError{Line: line, Reason: reason})
			continue
		}
		load.Edges = append(load.Edges, edge)
	}

	return load, nil
}

// LoadEdgesFile reads an edge list from a CSV file.
func LoadEdgesFile(path string) (*EdgeLoad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edge file: %w", err)
	}
	defer f.Close()

	load, err := LoadEdgesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loading edges from %s: %w", path, err)
	}
	return load, nil
}

func parseEdge(row []string, cols Columns) (graph.Edge, string) {
	if len(row) <= cols.Source || len(row) <= cols.Target {
		return graph.Edge{}, "row has too few columns"
	}

	e := graph.Edge{
		Source:   strings.TrimSpace(row[cols.Source]),
		Target:   strings.TrimSpace(row[cols.Target]),
		Relation: field(row, cols.Relation),
		Date:     field(row, cols.Date),
	}
	if e.Source == "" || e.Target == "" {
		return graph.Edge{}, "blank source or target"
	}
	if w, err := strconv.Atoi(field(row, cols.Weight)); err == nil && w > 0 {
		e.Weight = w
	}
	return e, ""
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// WriteEdgesCSV writes edges as a snapshot with columns
// date,from,relation,to,weight. Rows are ordered by weight descending;
// equal weights keep their input order. A non-empty date overrides each
// edge's own date.
func WriteEdgesCSV(w io.Writer, edges []graph.Edge, date string) error {
	sorted := append([]graph.Edge(nil), edges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return weight(sorted[i]) > weight(sorted[j])
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(EdgeFields); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range sorted {
		d := e.Date
		if date != "" {
			d = date
		}
		rec := []string{d, e.Source, e.Relation, e.Target, strconv.Itoa(weight(e))}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing edge: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdgesFile writes an edge snapshot to path.
func WriteEdgesFile(path string, edges []graph.Edge, date string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating edge file: %w", err)
	}
	if err := WriteEdgesCSV(f, edges, date); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func weight(e graph.Edge) int {
	if e.Weight <= 0 {
		return 1
	}
	return e.Weight
}
