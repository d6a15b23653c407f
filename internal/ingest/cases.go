package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Benny93/riskgraph/internal/graph"
)

// noTags marks an empty tag list in case files.
const noTags = "-"

// Case is a tagged discussion case from the upstream collector.
type Case struct {
	ObjectID string   `json:"object_id"`
	Date     string   `json:"date"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Author   string   `json:"author"`
	Points   int      `json:"points"`
	Comments int      `json:"comments"`
	Pattern  string   `json:"pattern"`
	Features []string `json:"core_ai_features"`
	Risks    []string `json:"risks"`
}

// NodeID returns the graph identifier of the case.
func (c Case) NodeID() string {
	return "case_" + c.ObjectID
}

// CaseLoad is the result of loading a case file.
type CaseLoad struct {
	Cases   []Case     `json:"cases"`
	Skipped []RowError `json:"skipped,omitempty"`
}

// LoadCasesCSV reads tagged cases. The header must name its columns;
// object_id is required per row, everything else is optional.
func LoadCasesCSV(r io.Reader) (*CaseLoad, error) {
	rows, skipped, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	load := &CaseLoad{Skipped: skipped}
	for _, row := range rows {
		c := Case{
			ObjectID: row.values["object_id"],
			Date:     row.values["date"],
			Title:    row.values["title"],
			URL:      row.values["url"],
			Author:   row.values["author"],
			Points:   atoi(row.values["points"]),
			Comments: atoi(row.values["comments"]),
			Pattern:  row.values["pattern"],
			Features: SplitTags(row.values["core_ai_features"]),
			Risks:    SplitTags(row.values["risks"]),
		}
		if c.ObjectID == "" {
			load.Skipped = append(load.Skipped, RowError{Line: row.line, Reason: "missing object_id"})
			continue
		}
		load.Cases = append(load.Cases, c)
	}
	return load, nil
}

// LoadCasesFile reads tagged cases from a CSV file.
func LoadCasesFile(path string) (*CaseLoad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening case file: %w", err)
	}
	defer f.Close()

	load, err := LoadCasesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loading cases from %s: %w", path, err)
	}
	return load, nil
}

// SplitTags splits a comma-separated tag list. "-" and "" mean no tags.
func SplitTags(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == noTags {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromCases builds snapshot edges from tagged cases:
//
//	case    -has_pattern->      pattern
//	pattern -uses_feature->     feature
//	case    -mentions_feature-> feature
//	pattern -has_risk_signal->  risk
//	case    -mentions_risk->    risk
//
// Repeated (from, relation, to) triples are counted into Weight. Edges are
// returned in first-seen order.
func FromCases(cases []Case) []graph.Edge {
	type triple struct{ from, rel, to string }

	var order []triple
	counts := make(map[triple]int)
	add := func(from, rel, to string) {
		if from == "" || to == "" {
			return
		}
		t := triple{from, rel, to}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	for _, c := range cases {
		id := c.NodeID()
		add(id, graph.RelHasPattern, c.Pattern)
		for _, ft := range c.Features {
			add(c.Pattern, graph.RelUsesFeature, ft)
			add(id, graph.RelMentionsFeature, ft)
		}
		for _, rk := range c.Risks {
			add(c.Pattern, graph.RelHasRiskSignal, rk)
			add(id, graph.RelMentionsRisk, rk)
		}
	}

	edges := make([]graph.Edge, len(order))
	for i, t := range order {
		edges[i] = graph.Edge{Source: t.from, Target: t.to, Relation: t.rel, Weight: counts[t]}
	}
	return edges
}

// record is a CSV row keyed by lower-cased header name.
type record struct {
	line   int
	values map[string]string
}

// readRecords reads a headed CSV into records.
func readRecords(r io.Reader) ([]record, []RowError, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyInput
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var (
		rows    []record
		skipped []RowError
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped = append(skipped, RowError{Line: perr.Line, Reason: perr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading rows: %w", err)
		}

		line, _ := cr.FieldPos(0)
		rec := record{line: line, values: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(row) && h != "" {
				rec.values[h] = strings.TrimSpace(row[i])
			}
		}
		rows = append(rows, rec)
	}

	return rows, skipped, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}
