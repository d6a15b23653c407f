// Package centrality ranks graph nodes by degree, betweenness and PageRank.
//
// The scoring algorithms sit behind the Scorer interface; the defaults
// delegate to gonum's graph/network package. This package owns the top-K
// extraction and the pairing of scores with degree and node type.
package centrality

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/Benny93/riskgraph/internal/graph"
)

// PageRank defaults.
const (
	// DefaultDampingFactor is the probability of following a link rather than jumping.
	DefaultDampingFactor = 0.85

	// DefaultTolerance stops power iteration once successive vectors differ by less than this.
	DefaultTolerance = 1e-6

	// DefaultTopK is the number of nodes kept per metric.
	DefaultTopK = 10
)

// Scorer computes a per-node score over the whole graph.
type Scorer interface {
	// Name is the metric name (e.g., "pagerank").
	Name() string

	// Score returns a score for every node in g.
	Score(g *graph.Graph) map[string]float64
}

// Betweenness scores nodes by the fraction of all-pairs shortest directed
// paths passing through them.
type Betweenness struct{}

// Name implements Scorer.
func (Betweenness) Name() string { return "betweenness" }

// Score implements Scorer. Scores are normalized by 1/((n-1)(n-2)), the
// directed-graph factor, so they fall in [0, 1].
func (Betweenness) Score(g *graph.Graph) map[string]float64 {
	scores := zeroScores(g)
	n := g.NodeCount()
	if n < 3 {
		return scores
	}

	dg := toDirected(g)
	nodes := g.Nodes()
	norm := float64((n - 1) * (n - 2))
	for id, v := range network.Betweenness(dg) {
		scores[nodes[id]] = v / norm
	}
	return scores
}

// PageRank scores nodes by the stationary distribution of a damped random walk.
type PageRank struct {
	// Damping is the probability of following an edge. Must be in (0, 1).
	Damping float64

	// Tolerance is the convergence threshold. Must be > 0.
	Tolerance float64
}

// Name implements Scorer.
func (PageRank) Name() string { return "pagerank" }

// Score implements Scorer. Invalid options fall back to the defaults.
func (p PageRank) Score(g *graph.Graph) map[string]float64 {
	damping, tol := p.Damping, p.Tolerance
	if damping <= 0 || damping >= 1 {
		damping = DefaultDampingFactor
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	scores := zeroScores(g)
	if g.NodeCount() == 0 {
		return scores
	}

	nodes := g.Nodes()
	for id, v := range network.PageRank(toDirected(g), damping, tol) {
		scores[nodes[id]] = v
	}
	return scores
}

// Degree scores nodes by their undirected in+out degree.
type Degree struct{}

// Name implements Scorer.
func (Degree) Name() string { return "degree" }

// Score implements Scorer.
func (Degree) Score(g *graph.Graph) map[string]float64 {
	scores := make(map[string]float64, g.NodeCount())
	for id, d := range g.Degrees() {
		scores[id] = float64(d)
	}
	return scores
}

// toDirected mirrors g into a gonum directed graph. Node IDs are the
// first-appearance positions in g. Self-loops are dropped since gonum's
// simple graphs reject them and they never lie on a shortest path.
func toDirected(g *graph.Graph) *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for i := range g.Nodes() {
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		if e.Source == e.Target {
			continue
		}
		from := simple.Node(int64(g.Position(e.Source)))
		to := simple.Node(int64(g.Position(e.Target)))
		dg.SetEdge(dg.NewEdge(from, to))
	}
	return dg
}

func zeroScores(g *graph.Graph) map[string]float64 {
	scores := make(map[string]float64, g.NodeCount())
	for _, n := range g.Nodes() {
		scores[n] = 0
	}
	return scores
}

// Ranked is a node with its score for one metric.
type Ranked struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Degree int            `json:"degree"`
	Type   graph.NodeType `json:"type"`
}

// TopK returns the k highest-scoring IDs, sorted by score descending and
// then ID ascending. k <= 0 returns every entry.
func TopK(scores map[string]float64, k int) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for id, s := range scores {
		out = append(out, Ranked{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Result holds the top-K rankings for each metric.
type Result struct {
	Degree      []Ranked `json:"degree"`
	Betweenness []Ranked `json:"betweenness"`
	PageRank    []Ranked `json:"pagerank"`
}

// Ranker computes rankings with pluggable scorers.
type Ranker struct {
	Betweenness Scorer
	PageRank    Scorer
	Classifier  *graph.Classifier
}

// NewRanker returns a ranker using the gonum-backed scorers and the default classifier.
func NewRanker() *Ranker {
	return &Ranker{
		Betweenness: Betweenness{},
		PageRank:    PageRank{Damping: DefaultDampingFactor, Tolerance: DefaultTolerance},
		Classifier:  graph.DefaultClassifier(),
	}
}

// Rank returns the top-k nodes per metric, each annotated with degree and type.
func (r *Ranker) Rank(g *graph.Graph, k int) Result {
	if k <= 0 {
		k = DefaultTopK
	}
	return Result{
		Degree:      r.annotate(g, TopK(Degree{}.Score(g), k)),
		Betweenness: r.annotate(g, TopK(r.Betweenness.Score(g), k)),
		PageRank:    r.annotate(g, TopK(r.PageRank.Score(g), k)),
	}
}

func (r *Ranker) annotate(g *graph.Graph, ranked []Ranked) []Ranked {
	for i := range ranked {
		ranked[i].Degree = g.Degree(ranked[i].ID)
		ranked[i].Type = r.Classifier.Classify(ranked[i].ID)
	}
	return ranked
}
