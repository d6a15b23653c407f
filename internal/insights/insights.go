// Package insights assembles the graph insight document from the graph,
// centrality and impact engines. Rendering lives in markdown.go; the
// Document itself is JSON-serializable.
package insights

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Benny93/riskgraph/internal/centrality"
	"github.com/Benny93/riskgraph/internal/graph"
	"github.com/Benny93/riskgraph/internal/impact"
)

// Section defaults.
const (
	DefaultTopHubs       = 5
	DefaultTopImpact     = impact.DefaultTopN
	DefaultTopCentrality = centrality.DefaultTopK

	// DateLayout is the layout of Document.Date and report file names.
	DateLayout = "2006-01-02"

	// nonNumericCaseIndex sorts cases without a numeric suffix last.
	nonNumericCaseIndex = 9999
)

// Stats summarizes the graph a document was built from.
type Stats struct {
	Nodes     int `json:"nodes"`
	Edges     int `json:"edges"`
	RiskNodes int `json:"risk_nodes"`
	Unknown   int `json:"unknown_nodes"`
}

// RiskNeighbors lists a risk node's direct undirected neighbors.
type RiskNeighbors struct {
	Risk      string   `json:"risk"`
	Neighbors []string `json:"neighbors"`
}

// FeatureCases lists the case nodes adjacent to a feature node.
type FeatureCases struct {
	Feature string   `json:"feature"`
	Cases   []string `json:"cases"`
}

// Document is the six-section insight report.
type Document struct {
	Date  string `json:"date"`
	Stats Stats  `json:"stats"`

	// 1) Top hub nodes by degree.
	Hubs []centrality.Ranked `json:"hubs"`

	// 2) Risk nodes and their direct neighbors.
	RiskNeighbors []RiskNeighbors `json:"risk_neighbors"`

	// 3) Feature nodes and their connected cases.
	FeatureCases []FeatureCases `json:"feature_cases"`

	// 4) Risk impact zones.
	RiskZones []*impact.Zone `json:"risk_zones"`

	// 5) Top impact-score nodes.
	Impact []impact.NodeScore `json:"impact"`

	// 6) Centrality rankings.
	TopCentrality int                 `json:"top_centrality"`
	Betweenness   []centrality.Ranked `json:"betweenness"`
	PageRank      []centrality.Ranked `json:"pagerank"`

	RiskEdges impact.EdgeZones `json:"risk_edges"`
}

// Options configures Build. Zero values select the defaults.
type Options struct {
	Date          time.Time
	TopHubs       int
	TopImpact     int
	TopCentrality int
	Workers       int
	Classifier    *graph.Classifier
	Ranker        *centrality.Ranker
}

func (o *Options) setDefaults() {
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	if o.TopHubs <= 0 {
		o.TopHubs = DefaultTopHubs
	}
	if o.TopImpact <= 0 {
		o.TopImpact = DefaultTopImpact
	}
	if o.TopCentrality <= 0 {
		o.TopCentrality = DefaultTopCentrality
	}
	if o.Classifier == nil {
		o.Classifier = graph.DefaultClassifier()
	}
	if o.Ranker == nil {
		o.Ranker = centrality.NewRanker()
		o.Ranker.Classifier = o.Classifier
	}
}

// Build assembles the insight document for g.
func Build(g *graph.Graph, opts Options) *Document {
	opts.setDefaults()

	analysis := impact.Analyze(g, impact.Options{
		Classifier: opts.Classifier,
		Workers:    opts.Workers,
	})
	ranks := opts.Ranker.Rank(g, opts.TopCentrality)

	doc := &Document{
		Date: opts.Date.Format(DateLayout),
		Stats: Stats{
			Nodes:     g.NodeCount(),
			Edges:     g.EdgeCount(),
			RiskNodes: len(analysis.Zones),
			Unknown:   analysis.Unknown,
		},
		Hubs:          topHubs(g, opts.Classifier, opts.TopHubs),
		RiskZones:     analysis.Zones,
		Impact:        analysis.Top(opts.TopImpact),
		TopCentrality: opts.TopCentrality,
		Betweenness:   ranks.Betweenness,
		PageRank:      ranks.PageRank,
		RiskEdges:     analysis.Edges,
	}

	for _, r := range analysis.Risks() {
		neighbors := g.Neighbors(r)
		graph.SortIDsByDegree(g, neighbors)
		doc.RiskNeighbors = append(doc.RiskNeighbors, RiskNeighbors{Risk: r, Neighbors: neighbors})
	}

	for _, f := range g.NodesOfType(opts.Classifier, graph.NodeFeature) {
		var cases []string
		for _, n := range g.Neighbors(f) {
			if opts.Classifier.Classify(n) == graph.NodeCase {
				cases = append(cases, n)
			}
		}
		SortCases(cases)
		doc.FeatureCases = append(doc.FeatureCases, FeatureCases{Feature: f, Cases: cases})
	}

	return doc
}

func topHubs(g *graph.Graph, c *graph.Classifier, k int) []centrality.Ranked {
	hubs := centrality.TopK(centrality.Degree{}.Score(g), k)
	for i := range hubs {
		hubs[i].Degree = g.Degree(hubs[i].ID)
		hubs[i].Type = c.Classify(hubs[i].ID)
	}
	return hubs
}

// CaseIndex returns the numeric suffix of a case identifier such as
// "case_42". Identifiers without a numeric second token sort last.
func CaseIndex(id string) int {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return nonNumericCaseIndex
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nonNumericCaseIndex
	}
	return n
}

// SortCases sorts case identifiers by CaseIndex, then by ID.
func SortCases(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := CaseIndex(ids[i]), CaseIndex(ids[j])
		if ci != cj {
			return ci < cj
		}
		return ids[i] < ids[j]
	})
}
