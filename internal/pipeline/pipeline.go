// Package pipeline runs riskgraph analyses end to end: load the input file,
// build the graph or item batch, analyze it, and package the result for
// output and the run history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/riskgraph/internal/centrality"
	"github.com/Benny93/riskgraph/internal/graph"
	"github.com/Benny93/riskgraph/internal/impact"
	"github.com/Benny93/riskgraph/internal/ingest"
	"github.com/Benny93/riskgraph/internal/insights"
	"github.com/Benny93/riskgraph/internal/metrics"
	"github.com/Benny93/riskgraph/internal/priority"
	"github.com/Benny93/riskgraph/internal/storage"
)

// ErrNodeNotFound is returned when a node is absent from the graph.
var ErrNodeNotFound = errors.New("node not found")

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Runner executes analyses with shared settings.
type Runner struct {
	Log      *logrus.Logger
	Metrics  *metrics.Recorder
	Insights insights.Options
}

// InsightsResult summarizes an insights run.
type InsightsResult struct {
	Document     *insights.Document
	Markdown     string
	Skipped      int
	DurationSecs float64
}

// ImpactResult is the zone of one node.
type ImpactResult struct {
	Zone    *impact.Zone       `json:"zone"`
	Type    graph.NodeType     `json:"type"`
	Credits []impact.NodeScore `json:"credits"`
}

// PriorityResult summarizes a prioritize run.
type PriorityResult struct {
	Items        []priority.ScoredItem
	Skipped      int
	DurationSecs float64
}

// LoadGraph reads an edge list and builds the graph. An empty file yields an
// empty graph; malformed rows are logged and skipped.
func (r *Runner) LoadGraph(path string) (*graph.Graph, int, error) {
	load, err := ingest.LoadEdgesFile(path)
	if errors.Is(err, ingest.ErrEmptyInput) {
		r.Log.WithField("path", path).Warn("Edge list is empty")
		load = &ingest.EdgeLoad{}
	} else if err != nil {
		return nil, 0, err
	}

	for _, skip := range load.Skipped {
		r.Log.WithFields(logrus.Fields{
			"path":   path,
			"line":   skip.Line,
			"reason": skip.Reason,
		}).Warn("Skipping edge row")
	}
	if r.Metrics != nil {
		r.Metrics.ObserveSkipped("edges", len(load.Skipped))
	}

	g := graph.Build(load.Edges)
	r.Log.WithFields(logrus.Fields{
		"path":  path,
		"nodes": g.NodeCount(),
		"edges": g.EdgeCount(),
	}).Debug("Graph built")

	return g, len(load.Skipped), nil
}

// RunInsights builds the insight document for the edge list at path.
func (r *Runner) RunInsights(ctx context.Context, path string, progress ProgressCallback) (*InsightsResult, error) {
	start := time.Now()
	if r.Metrics != nil {
		defer r.Metrics.ObserveRun(string(storage.KindInsights), start)
	}

	report(progress, "Loading edges", 0.0)
	g, skipped, err := r.LoadGraph(path)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	report(progress, "Loading edges", 1.0)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(progress, "Analyzing graph", 0.0)
	doc := insights.Build(g, r.Insights)
	report(progress, "Analyzing graph", 1.0)

	if r.Metrics != nil {
		r.Metrics.ObserveGraph(doc.Stats.Nodes, doc.Stats.Edges, doc.Stats.RiskNodes, doc.Stats.Unknown)
	}
	if doc.Stats.Unknown > 0 {
		r.Log.WithField("count", doc.Stats.Unknown).Warn("Nodes could not be classified")
	}

	report(progress, "Rendering report", 0.0)
	res := &InsightsResult{
		Document:     doc,
		Markdown:     insights.RenderMarkdown(doc),
		Skipped:      skipped,
		DurationSecs: time.Since(start).Seconds(),
	}
	report(progress, "Rendering report", 1.0)

	return res, nil
}

// RunImpact computes the zone of node id in the edge list at path. The node
// does not have to classify as a risk.
func (r *Runner) RunImpact(path, id string) (*ImpactResult, error) {
	g, _, err := r.LoadGraph(path)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	if !g.HasNode(id) {
		return nil, fmt.Errorf("%w: %q in %s", ErrNodeNotFound, id, path)
	}

	classifier := r.Insights.Classifier
	if classifier == nil {
		classifier = graph.DefaultClassifier()
	}

	z := impact.ZoneFor(g, id)
	return &ImpactResult{
		Zone:    z,
		Type:    classifier.Classify(id),
		Credits: z.Credits(g, classifier),
	}, nil
}

// RunCentrality ranks the top k nodes of the edge list at path by degree,
// betweenness and PageRank.
func (r *Runner) RunCentrality(path string, k int) (centrality.Result, error) {
	g, _, err := r.LoadGraph(path)
	if err != nil {
		return centrality.Result{}, fmt.Errorf("loading graph: %w", err)
	}

	ranker := r.Insights.Ranker
	if ranker == nil {
		ranker = centrality.NewRanker()
		if r.Insights.Classifier != nil {
			ranker.Classifier = r.Insights.Classifier
		}
	}
	return ranker.Rank(g, k), nil
}

// RunPriority scores and ranks the idea batch at path.
func (r *Runner) RunPriority(ctx context.Context, path string) (*PriorityResult, error) {
	start := time.Now()
	if r.Metrics != nil {
		defer r.Metrics.ObserveRun(string(storage.KindPriority), start)
	}

	load, err := ingest.LoadItemsFile(path)
	if errors.Is(err, ingest.ErrEmptyInput) {
		r.Log.WithField("path", path).Warn("Item batch is empty")
		load = &ingest.ItemLoad{}
	} else if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}

	for _, skip := range load.Skipped {
		r.Log.WithFields(logrus.Fields{
			"path":   path,
			"line":   skip.Line,
			"reason": skip.Reason,
		}).Warn("Skipping item")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := priority.Rank(load.Items)
	if r.Metrics != nil {
		r.Metrics.ObserveSkipped("items", len(load.Skipped))
		r.Metrics.ItemsScored.Add(float64(len(ranked)))
	}
	r.Log.WithFields(logrus.Fields{"path": path, "items": len(ranked)}).Debug("Items ranked")

	return &PriorityResult{
		Items:        ranked,
		Skipped:      len(load.Skipped),
		DurationSecs: time.Since(start).Seconds(),
	}, nil
}

// Run packages the result for the run history.
func (res *InsightsResult) Run(source string) (*storage.Run, error) {
	run := storage.NewRun(storage.KindInsights, source)
	run.Stats = map[string]int{
		"nodes":         res.Document.Stats.Nodes,
		"edges":         res.Document.Stats.Edges,
		"risk_nodes":    res.Document.Stats.RiskNodes,
		"unknown_nodes": res.Document.Stats.Unknown,
		"skipped_rows":  res.Skipped,
	}
	run.Markdown = res.Markdown
	if err := run.SetPayload(res.Document); err != nil {
		return nil, err
	}
	return run, nil
}

// Run packages the result for the run history.
func (res *PriorityResult) Run(source string) (*storage.Run, error) {
	run := storage.NewRun(storage.KindPriority, source)
	run.Stats = map[string]int{
		"items":        len(res.Items),
		"skipped_rows": res.Skipped,
	}
	if err := run.SetPayload(res.Items); err != nil {
		return nil, err
	}
	return run, nil
}

// Top returns at most n items; n <= 0 returns all.
func (res *PriorityResult) Top(n int) []priority.ScoredItem {
	if n <= 0 || n >= len(res.Items) {
		return res.Items
	}
	return res.Items[:n]
}

func report(progress ProgressCallback, phase string, pct float64) {
	if progress != nil {
		progress(phase, pct)
	}
}
