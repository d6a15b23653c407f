package graph

import "sort"

// HopNeighbors returns the nodes reachable from start within depth undirected
// hops, excluding start itself.
//
// Each round expands the frontier by one hop and keeps only nodes not seen
// before, so the result for depth d is always a subset of the result for
// depth d+1. A depth below 1 or an unknown start node yields an empty set.
func HopNeighbors(g *Graph, start string, depth int) map[string]struct{} {
	if !g.HasNode(start) {
		return map[string]struct{}{}
	}

	visited := map[string]struct{}{start: {}}
	frontier := []string{start}

	for round := 0; round < depth && len(frontier) > 0; round++ {
		var next []string
		for _, u := range frontier {
			for _, v := range g.Neighbors(u) {
				if _, seen := visited[v]; seen {
					continue
				}
				visited[v] = struct{}{}
				next = append(next, v)
			}
		}
		frontier = next
	}

	delete(visited, start)
	return visited
}

// SortByDegree returns the IDs ordered by degree descending, then ID ascending.
func SortByDegree(g *Graph, ids map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	SortIDsByDegree(g, out)
	return out
}

// SortIDsByDegree sorts ids in place by degree descending, then ID ascending.
func SortIDsByDegree(g *Graph, ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		di, dj := g.Degree(ids[i]), g.Degree(ids[j])
		if di != dj {
			return di > dj
		}
		return ids[i] < ids[j]
	})
}
