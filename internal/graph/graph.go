// Package graph provides the in-memory relationship graph for riskgraph.
//
// The graph is built once from a complete edge list and is immutable
// afterwards, so it can be shared across goroutines without locking.
// Adjacency is indexed in both directions so that neighbor queries are
// O(degree) rather than O(edges).
package graph

import "sort"

// Graph is an immutable directed graph of string-identified nodes.
//
// Nodes are kept in first-appearance order (source before target, in edge
// order). Duplicate (source, target) edges collapse into one edge whose
// weight is the sum of the duplicates.
type Graph struct {
	nodes []string
	index map[string]int
	edges []Edge

	// Secondary indexes, built once by Build.
	edgeIndex map[EdgeKey]int
	outgoing  map[string][]string
	incoming  map[string][]string
}

// Build creates a graph from the given edges. It never fails: edges with an
// empty endpoint still create their nodes, matching how the edge snapshot is
// consumed downstream.
func Build(edges []Edge) *Graph {
	g := &Graph{
		index:     make(map[string]int),
		edgeIndex: make(map[EdgeKey]int),
		outgoing:  make(map[string][]string),
		incoming:  make(map[string][]string),
	}

	for _, e := range edges {
		g.addNode(e.Source)
		g.addNode(e.Target)

		if i, ok := g.edgeIndex[e.Key()]; ok {
			g.edges[i].Weight += weightOf(e)
			continue
		}

		e.Weight = weightOf(e)
		g.edgeIndex[e.Key()] = len(g.edges)
		g.edges = append(g.edges, e)
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e.Target)
		g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	}

	return g
}

func weightOf(e Edge) int {
	if e.Weight <= 0 {
		return 1
	}
	return e.Weight
}

func (g *Graph) addNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct directed edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all node IDs in first-appearance order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns all distinct edges in first-appearance order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// HasEdge reports whether the directed edge source -> target exists.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edgeIndex[EdgeKey{Source: source, Target: target}]
	return ok
}

// Position returns the first-appearance index of a node, or -1.
func (g *Graph) Position(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Successors returns the targets of edges leaving the node.
func (g *Graph) Successors(id string) []string {
	return append([]string(nil), g.outgoing[id]...)
}

// Predecessors returns the sources of edges entering the node.
func (g *Graph) Predecessors(id string) []string {
	return append([]string(nil), g.incoming[id]...)
}

// Neighbors returns the undirected neighbors of the node (successors and
// predecessors, excluding the node itself), sorted by ID.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]struct{}, len(g.outgoing[id])+len(g.incoming[id]))
	for _, n := range g.outgoing[id] {
		seen[n] = struct{}{}
	}
	for _, n := range g.incoming[id] {
		seen[n] = struct{}{}
	}
	delete(seen, id)

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Degree returns the in+out degree of the node. A self-loop counts twice.
func (g *Graph) Degree(id string) int {
	return len(g.outgoing[id]) + len(g.incoming[id])
}

// Degrees returns the degree of every node.
func (g *Graph) Degrees() map[string]int {
	out := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		out[n] = g.Degree(n)
	}
	return out
}

// NodesOfType returns the nodes classified as t, in first-appearance order.
func (g *Graph) NodesOfType(c *Classifier, t NodeType) []string {
	var out []string
	for _, n := range g.nodes {
		if c.Classify(n) == t {
			out = append(out, n)
		}
	}
	return out
}

// Stats returns a summary of graph size.
func (g *Graph) Stats() map[string]int {
	return map[string]int{
		"nodes": len(g.nodes),
		"edges": len(g.edges),
	}
}
