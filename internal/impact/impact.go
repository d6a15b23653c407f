// Package impact computes risk blast radii over the relationship graph.
//
// For every risk node it collects the 1-hop and 2-hop undirected
// neighborhoods, classifies the edges falling inside those zones, and
// accumulates a weighted impact score per node: +2 for each risk whose
// 1-hop zone contains the node and +1 for each risk whose 2-hop zone
// contains it. The 2-hop zone includes the 1-hop zone, so a direct
// neighbor of a risk collects both contributions from it.
package impact

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/riskgraph/internal/graph"
)

// Score weights and defaults.
const (
	Hop1Weight = 2
	Hop2Weight = 1

	// DefaultTopN is the number of nodes reported by Top.
	DefaultTopN = 10
)

// Zone is the blast radius of one risk node.
type Zone struct {
	// Risk is the risk node ID.
	Risk string `json:"risk"`

	// Hop1 holds nodes within one hop, sorted by degree desc then ID.
	Hop1 []string `json:"hop1"`

	// Hop2 holds nodes within two hops (a superset of Hop1), same order.
	Hop2 []string `json:"hop2"`

	hop1 map[string]struct{}
	hop2 map[string]struct{}
}

// Contains1 reports whether id lies in the 1-hop zone, including the risk itself.
func (z *Zone) Contains1(id string) bool {
	_, ok := z.hop1[id]
	return ok || id == z.Risk
}

// Contains2 reports whether id lies in the 2-hop zone, including the risk itself.
func (z *Zone) Contains2(id string) bool {
	_, ok := z.hop2[id]
	return ok || id == z.Risk
}

// EdgeZones partitions the graph edges touched by risk zones.
type EdgeZones struct {
	// Hop1 edges have both endpoints inside some risk's 1-hop zone.
	Hop1 []graph.EdgeKey `json:"hop1"`

	// Hop2 edges have both endpoints inside some risk's 2-hop zone and are not Hop1 edges.
	Hop2 []graph.EdgeKey `json:"hop2"`
}

// NodeScore is a node with its accumulated impact score.
type NodeScore struct {
	ID     string         `json:"id"`
	Score  int            `json:"score"`
	Degree int            `json:"degree"`
	Type   graph.NodeType `json:"type"`
}

// Analysis is the result of a risk impact run.
type Analysis struct {
	// Zones holds one zone per risk node, in first-appearance order.
	Zones []*Zone `json:"zones"`

	// Edges holds the edge classification across all zones.
	Edges EdgeZones `json:"edges"`

	// Scores maps every node with a positive impact score to that score.
	Scores map[string]int `json:"scores"`

	// Unknown counts nodes whose classification failed. They are never
	// enumerated as risks but still take part in traversal and degree.
	Unknown int `json:"unknown"`

	g          *graph.Graph
	classifier *graph.Classifier
}

// Options configures Analyze.
type Options struct {
	// Classifier decides which nodes are risks. Defaults to graph.DefaultClassifier.
	Classifier *graph.Classifier

	// Workers bounds concurrent per-risk traversals. Defaults to GOMAXPROCS.
	Workers int
}

// Analyze computes zones, edge classification and impact scores for g.
func Analyze(g *graph.Graph, opts Options) *Analysis {
	if opts.Classifier == nil {
		opts.Classifier = graph.DefaultClassifier()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	a := &Analysis{
		Scores:     make(map[string]int),
		g:          g,
		classifier: opts.Classifier,
	}

	var risks []string
	for _, n := range g.Nodes() {
		switch opts.Classifier.Classify(n) {
		case graph.NodeRisk:
			risks = append(risks, n)
		case graph.NodeUnknown:
			a.Unknown++
		}
	}

	a.Zones = computeZones(g, risks, opts.Workers)
	a.Edges = classifyEdges(g, a.Zones)
	a.Scores = accumulateScores(a.Zones)
	return a
}

// ZoneFor computes the zone of a single node, whether or not it is a risk.
func ZoneFor(g *graph.Graph, id string) *Zone {
	hop1 := graph.HopNeighbors(g, id, 1)
	hop2 := graph.HopNeighbors(g, id, 2)
	return &Zone{
		Risk: id,
		Hop1: graph.SortByDegree(g, hop1),
		Hop2: graph.SortByDegree(g, hop2),
		hop1: hop1,
		hop2: hop2,
	}
}

// computeZones runs the per-risk traversals concurrently. The graph is
// immutable, and each goroutine writes only its own slot.
func computeZones(g *graph.Graph, risks []string, workers int) []*Zone {
	zones := make([]*Zone, len(risks))

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, r := range risks {
		eg.Go(func() error {
			zones[i] = ZoneFor(g, r)
			return nil
		})
	}
	_ = eg.Wait()

	return zones
}

// classifyEdges assigns edges to the 1-hop set first across all zones, then
// to the 2-hop set, so an edge never appears in both.
func classifyEdges(g *graph.Graph, zones []*Zone) EdgeZones {
	var out EdgeZones
	inHop1 := make(map[graph.EdgeKey]struct{})

	edges := g.Edges()
	for _, e := range edges {
		for _, z := range zones {
			if z.Contains1(e.Source) && z.Contains1(e.Target) {
				inHop1[e.Key()] = struct{}{}
				out.Hop1 = append(out.Hop1, e.Key())
				break
			}
		}
	}

	for _, e := range edges {
		if _, ok := inHop1[e.Key()]; ok {
			continue
		}
		for _, z := range zones {
			if z.Contains2(e.Source) && z.Contains2(e.Target) {
				out.Hop2 = append(out.Hop2, e.Key())
				break
			}
		}
	}

	return out
}

func accumulateScores(zones []*Zone) map[string]int {
	scores := make(map[string]int)
	for _, z := range zones {
		for n := range z.hop1 {
			scores[n] += Hop1Weight
		}
		for n := range z.hop2 {
			scores[n] += Hop2Weight
		}
	}
	return scores
}

// Score returns the impact score of a node (0 when untouched by any risk).
func (a *Analysis) Score(id string) int {
	return a.Scores[id]
}

// Risks returns the risk node IDs in first-appearance order.
func (a *Analysis) Risks() []string {
	out := make([]string, len(a.Zones))
	for i, z := range a.Zones {
		out[i] = z.Risk
	}
	return out
}

// Zone returns the zone of the given risk node, or nil.
func (a *Analysis) Zone(risk string) *Zone {
	for _, z := range a.Zones {
		if z.Risk == risk {
			return z
		}
	}
	return nil
}

// Top returns the n highest-impact nodes, ordered by score desc, degree desc,
// then ID asc. n <= 0 uses DefaultTopN.
func (a *Analysis) Top(n int) []NodeScore {
	if n <= 0 {
		n = DefaultTopN
	}

	out := make([]NodeScore, 0, len(a.Scores))
	for id, s := range a.Scores {
		out = append(out, NodeScore{
			ID:     id,
			Score:  s,
			Degree: a.g.Degree(id),
			Type:   a.classifier.Classify(id),
		})
	}
	sortScores(out)

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Credits returns the score contribution of a single zone to every node it
// touches, in the same order as Top.
func (z *Zone) Credits(g *graph.Graph, c *graph.Classifier) []NodeScore {
	if c == nil {
		c = graph.DefaultClassifier()
	}

	credit := make(map[string]int, len(z.hop2))
	for n := range z.hop1 {
		credit[n] += Hop1Weight
	}
	for n := range z.hop2 {
		credit[n] += Hop2Weight
	}

	out := make([]NodeScore, 0, len(credit))
	for id, s := range credit {
		out = append(out, NodeScore{ID: id, Score: s, Degree: g.Degree(id), Type: c.Classify(id)})
	}
	sortScores(out)
	return out
}

func sortScores(out []NodeScore) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].ID < out[j].ID
	})
}
