package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func TestHopNeighbors(t *testing.T) {
	t.Parallel()

	g := Build(chain("A", "B", "C", "D"))

	t.Run("OneHopIsUndirected", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"A", "C"}, keys(HopNeighbors(g, "B", 1)))
	})

	t.Run("TwoHops", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"A", "C", "D"}, keys(HopNeighbors(g, "B", 2)))
	})

	t.Run("DepthBeyondDiameter", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"B", "C", "D"}, keys(HopNeighbors(g, "A", 10)))
	})

	t.Run("ZeroDepth", func(t *testing.T) {
		assert.Empty(t, HopNeighbors(g, "B", 0))
	})

	t.Run("UnknownStart", func(t *testing.T) {
		assert.Empty(t, HopNeighbors(g, "Z", 2))
	})
}

func TestHopNeighbors_Monotonic(t *testing.T) {
	t.Parallel()

	g := Build([]Edge{
		{Source: "case_1", Target: "agent"},
		{Source: "agent", Target: "latency"},
		{Source: "case_2", Target: "latency"},
		{Source: "case_2", Target: "action_items"},
		{Source: "action_items", Target: "action_items"},
		{Source: "case_3", Target: "structured_output"},
		{Source: "structured_output", Target: "case_1"},
	})

	for _, start := range g.Nodes() {
		prev := map[string]struct{}{}
		for d := 1; d <= 5; d++ {
			cur := HopNeighbors(g, start, d)

			_, self := cur[start]
			assert.False(t, self, "start %s in its own hop set at depth %d", start, d)
			for n := range prev {
				_, ok := cur[n]
				assert.True(t, ok, "hop(%s,%d) lost %s", start, d, n)
			}
			prev = cur
		}
	}
}

func TestSortByDegree(t *testing.T) {
	t.Parallel()

	g := Build([]Edge{
		{Source: "hub", Target: "x"},
		{Source: "hub", Target: "y"},
		{Source: "y", Target: "z"},
	})

	got := SortByDegree(g, map[string]struct{}{"x": {}, "y": {}, "z": {}, "hub": {}})
	assert.Equal(t, []string{"hub", "y", "x", "z"}, got)
}
