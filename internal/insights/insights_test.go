package insights

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/riskgraph/internal/graph"
	"github.com/Benny93/riskgraph/internal/impact"
)

var reportDate = time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

func snapshotGraph() *graph.Graph {
	return graph.Build([]graph.Edge{
		{Source: "case_10", Target: "agent", Relation: graph.RelHasPattern},
		{Source: "case_10", Target: "action_items", Relation: graph.RelMentionsFeature},
		{Source: "case_2", Target: "agent", Relation: graph.RelHasPattern},
		{Source: "case_2", Target: "action_items", Relation: graph.RelMentionsFeature},
		{Source: "case_2", Target: "latency", Relation: graph.RelMentionsRisk},
		{Source: "agent", Target: "action_items", Relation: graph.RelUsesFeature},
		{Source: "agent", Target: "latency", Relation: graph.RelHasRiskSignal},
		{Source: "case_x", Target: "action_items", Relation: graph.RelMentionsFeature},
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()

	doc := Build(snapshotGraph(), Options{Date: reportDate})

	t.Run("Stats", func(t *testing.T) {
		assert.Equal(t, "2026-01-02", doc.Date)
		assert.Equal(t, Stats{Nodes: 6, Edges: 8, RiskNodes: 1}, doc.Stats)
	})

	t.Run("Hubs", func(t *testing.T) {
		var ids []string
		for _, h := range doc.Hubs {
			ids = append(ids, h.ID)
		}
		assert.Equal(t, []string{"action_items", "agent", "case_2", "case_10", "latency"}, ids)
		assert.Equal(t, 4, doc.Hubs[0].Degree)
		assert.Equal(t, graph.NodeFeature, doc.Hubs[0].Type)
	})

	t.Run("RiskNeighbors", func(t *testing.T) {
		assert.Equal(t, []RiskNeighbors{
			{Risk: "latency", Neighbors: []string{"agent", "case_2"}},
		}, doc.RiskNeighbors)
	})

	t.Run("FeatureCasesSortedByNumericSuffix", func(t *testing.T) {
		assert.Equal(t, []FeatureCases{
			{Feature: "action_items", Cases: []string{"case_2", "case_10", "case_x"}},
		}, doc.FeatureCases)
	})

	t.Run("RiskZones", func(t *testing.T) {
		require.Len(t, doc.RiskZones, 1)
		assert.Equal(t, []string{"agent", "case_2"}, doc.RiskZones[0].Hop1)
		assert.Equal(t, []string{"action_items", "agent", "case_2", "case_10"}, doc.RiskZones[0].Hop2)
	})

	t.Run("Impact", func(t *testing.T) {
		require.Len(t, doc.Impact, 4)
		assert.Equal(t, "agent", doc.Impact[0].ID)
		assert.Equal(t, 3, doc.Impact[0].Score)
		assert.Equal(t, "case_2", doc.Impact[1].ID)
		assert.Equal(t, "action_items", doc.Impact[2].ID)
		assert.Equal(t, 1, doc.Impact[2].Score)
	})

	t.Run("Centrality", func(t *testing.T) {
		assert.Len(t, doc.Betweenness, 6)
		assert.Len(t, doc.PageRank, 6)
		assert.Equal(t, DefaultTopCentrality, doc.TopCentrality)
	})
}

func TestBuild_Limits(t *testing.T) {
	t.Parallel()

	doc := Build(snapshotGraph(), Options{Date: reportDate, TopHubs: 2, TopImpact: 1, TopCentrality: 3})

	assert.Len(t, doc.Hubs, 2)
	assert.Len(t, doc.Impact, 1)
	assert.Len(t, doc.Betweenness, 3)
	assert.Len(t, doc.PageRank, 3)
}

func TestBuild_EmptyGraph(t *testing.T) {
	t.Parallel()

	doc := Build(graph.Build(nil), Options{Date: reportDate})

	assert.Empty(t, doc.Hubs)
	assert.Empty(t, doc.RiskNeighbors)
	assert.Empty(t, doc.FeatureCases)
	assert.Empty(t, doc.RiskZones)
	assert.Empty(t, doc.Impact)

	md := RenderMarkdown(doc)
	assert.Contains(t, md, "## 2) Risk Nodes & Direct Neighbors\n- (no risk nodes found)\n")
	assert.Contains(t, md, "- (no feature nodes found)\n")
	assert.Contains(t, md, "## 4) Risk Impact Zone (1-hop / 2-hop)\n- (no risk nodes found)\n")
	assert.Contains(t, md, "- (no impact nodes found)\n")
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	md := RenderMarkdown(Build(snapshotGraph(), Options{Date: reportDate}))

	for _, want := range []string{
		"# Graph Insights (2026-01-02)\n\n## 1) Top Hub Nodes (by Degree)\n",
		"- 1. **action_items** — degree=4, type=feature\n",
		"- **latency** → agent, case_2\n",
		"- **action_items** → cases(3): case_2, case_10, case_x\n",
		"- **latency**\n  - 1-hop(2): agent, case_2\n  - 2-hop(4): action_items, agent, case_2, case_10\n",
		"- 1. **agent** — score=3, degree=4, type=pattern\n",
		"### 6.1 Betweenness Centrality (Top 10)\n",
		"\n### 6.2 PageRank (Top 10)\n",
	} {
		assert.Contains(t, md, want)
	}
	assert.Regexp(t, `pagerank=0\.\d{4}, degree=`, md)
}

func TestRenderZone(t *testing.T) {
	t.Parallel()

	g := snapshotGraph()
	z := impact.ZoneFor(g, "latency")
	md := RenderZone(z, graph.NodeRisk, z.Credits(g, nil))

	assert.Contains(t, md, "# Risk Impact: latency (type=risk)")
	assert.Contains(t, md, "- 1-hop(2): agent, case_2\n")
	assert.Contains(t, md, "- 2-hop(4): action_items, agent, case_2, case_10\n")
	assert.Contains(t, md, "- 1. **agent** — +3, degree=4, type=pattern\n")
	assert.Contains(t, md, "- 4. **case_10** — +1, degree=2, type=case\n")

	t.Run("Isolated", func(t *testing.T) {
		z := impact.ZoneFor(g, "nowhere")
		md := RenderZone(z, graph.NodeUnknown, nil)
		assert.Contains(t, md, "- 1-hop(0): (none)")
		assert.Contains(t, md, "- (no impact nodes found)")
	})
}

func TestDocument_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Build(snapshotGraph(), Options{Date: reportDate}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2026-01-02", decoded["date"])
	assert.Contains(t, decoded, "risk_zones")
	assert.Contains(t, decoded, "risk_edges")
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	doc := Build(snapshotGraph(), Options{Date: reportDate})

	path, err := WriteReport(dir, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-01-02_graph_insights.md"), path)

	dated, err := os.ReadFile(path)
	require.NoError(t, err)
	latest, err := os.ReadFile(LatestReportPath(dir))
	require.NoError(t, err)

	assert.Equal(t, RenderMarkdown(doc), string(dated))
	assert.Equal(t, dated, latest)
}

func TestCaseIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want int
	}{
		{"case_1", 1},
		{"case_40123", 40123},
		{"case_7_extra", 7},
		{"case_x", 9999},
		{"case", 9999},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, CaseIndex(tt.id))
		})
	}
}
