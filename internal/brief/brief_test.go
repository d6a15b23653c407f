package brief

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/riskgraph/internal/ingest"
)

func sampleCases() []ingest.Case {
	return []ingest.Case{
		{ObjectID: "1", Title: "Recap bot", URL: "https://example.com/1", Points: 100, Comments: 20,
			Pattern: PatternAgent, Features: []string{"action_items", "summary"}, Risks: []string{"latency", "privacy"}},
		{ObjectID: "2", Title: "Notes", Points: 50, Comments: 10,
			Pattern: PatternAgent, Features: []string{"action_items"}, Risks: []string{"latency"}},
		{ObjectID: "3", Title: "Wiki search", Points: 30,
			Pattern: PatternHybridRAG, Features: []string{"search"}, Risks: []string{"compliance"}},
		{ObjectID: "4", Title: "Prompt toy", Comments: 5,
			Pattern: PatternGenerator},
	}
}

func TestDailyMetrics(t *testing.T) {
	t.Parallel()

	t.Run("Sample", func(t *testing.T) {
		m := DailyMetrics(sampleCases(), "2026-01-02")

		assert.Equal(t, Metrics{
			Date:           "2026-01-02",
			Usecase:        Usecase,
			Mentions:       4,
			TotalPoints:    180,
			TotalComments:  35,
			InterestScore:  180 + 2*35 + 5*4,
			ShareGenerator: 0.25,
			ShareHybridRAG: 0.25,
			ShareAgent:     0.5,
			TopFeature:     "action_items",
			TopRisk:        "latency",
		}, m)
	})

	t.Run("SharesRoundToFourDecimals", func(t *testing.T) {
		cases := []ingest.Case{{Pattern: PatternAgent}, {Pattern: PatternHybridRAG}, {Pattern: PatternHybridRAG}}
		m := DailyMetrics(cases, "2026-01-02")

		assert.Equal(t, 0.3333, m.ShareAgent)
		assert.Equal(t, 0.6667, m.ShareHybridRAG)
		assert.Equal(t, 0.0, m.ShareGenerator)
	})

	t.Run("NoCases", func(t *testing.T) {
		m := DailyMetrics(nil, "2026-01-02")

		assert.Equal(t, 0, m.Mentions)
		assert.Equal(t, 0, m.InterestScore)
		assert.Equal(t, 0.0, m.ShareAgent)
		assert.Equal(t, "-", m.TopFeature)
		assert.Equal(t, "-", m.TopRisk)
	})

	t.Run("TopTagTiesKeepFirstSeen", func(t *testing.T) {
		cases := []ingest.Case{
			{Features: []string{"summary", "action_items"}, Risks: []string{"privacy"}},
			{Features: []string{"action_items", "summary"}, Risks: []string{"latency"}},
		}
		m := DailyMetrics(cases, "2026-01-02")

		assert.Equal(t, "summary", m.TopFeature)
		assert.Equal(t, "privacy", m.TopRisk)
	})
}

func TestAppendMetricsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "metrics", "daily_interest_metrics.csv")
	m := DailyMetrics(sampleCases(), "2026-01-02")

	require.NoError(t, AppendMetricsFile(path, m))
	m.Date = "2026-01-03"
	require.NoError(t, AppendMetricsFile(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header is written once")
	assert.Equal(t, strings.Join(MetricsFields, ","), lines[0])
	assert.Equal(t, "2026-01-02,meeting_call_summary_post_upload,4,180,35,270,0.25,0.25,0.5,action_items,latency", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2026-01-03,"))
}

func TestWriteMetricsCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteMetricsCSV(&buf, false, DailyMetrics(nil, "2026-01-02")))
	assert.Equal(t, "2026-01-02,meeting_call_summary_post_upload,0,0,0,0,0,0,0,-,-\n", buf.String())
}

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("Sample", func(t *testing.T) {
		b := Build(sampleCases())
		require.NotNil(t, b)

		assert.Equal(t, PatternAgent, b.Pattern)
		// 0.55·(2/4) + 0.25·(4/10) + 0.20·min(1, 215/200)
		assert.InDelta(t, 0.575, b.Confidence, 1e-9)
		assert.Equal(t, "Medium", b.ConfidenceLabel)
		assert.Equal(t, 4, b.Mentions)
		assert.Equal(t, 180, b.TotalPoints)
		assert.Equal(t, 35, b.TotalComments)

		assert.Equal(t, []Share{
			{Pattern: PatternAgent, Count: 2, Share: 0.5},
			{Pattern: PatternHybridRAG, Count: 1, Share: 0.25},
			{Pattern: PatternGenerator, Count: 1, Share: 0.25},
		}, b.Shares)
		assert.Equal(t, []Count{{"action_items", 2}, {"summary", 1}, {"search", 1}}, b.Features)
		assert.Equal(t, []RiskAction{
			{Risk: "latency", Signal: 2, Mitigations: []string{"queueing", "batching", "caching"}},
			{Risk: "privacy", Signal: 1, Mitigations: Playbook["privacy"]},
			{Risk: "compliance", Signal: 1, Mitigations: []string{NoPlaybook}},
		}, b.Risks)
		assert.Equal(t, deferOther, b.Defer)
		assert.Len(t, b.Why, 2)

		require.Len(t, b.Evidence, 4)
		assert.Equal(t, "1", b.Evidence[0].ObjectID)
		assert.Equal(t, "4", b.Evidence[3].ObjectID)
	})

	t.Run("DominantTieKeepsFirstSeen", func(t *testing.T) {
		b := Build([]ingest.Case{{Pattern: PatternHybridRAG}, {Pattern: PatternGenerator}})
		require.NotNil(t, b)

		assert.Equal(t, PatternHybridRAG, b.Pattern)
		assert.Equal(t, deferred[PatternHybridRAG], b.Defer)
	})

	t.Run("UnknownPattern", func(t *testing.T) {
		b := Build([]ingest.Case{{Pattern: "Other"}})
		require.NotNil(t, b)

		assert.Equal(t, []string{"(no template)"}, b.Why)
		assert.Equal(t, deferOther, b.Defer)
	})

	t.Run("CapsFeaturesAndRisks", func(t *testing.T) {
		var feats, risks []string
		for _, s := range "abcdefghij" {
			feats = append(feats, string(s))
			risks = append(risks, "r"+string(s))
		}
		b := Build([]ingest.Case{{Pattern: PatternAgent, Features: feats, Risks: risks}})

		assert.Len(t, b.Features, TopFeatures)
		assert.Len(t, b.Risks, TopRisks)
	})

	t.Run("NoCases", func(t *testing.T) {
		assert.Nil(t, Build(nil))
	})
}

func TestConfidence(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Confidence(1, 10, 200), 1e-9)
	assert.InDelta(t, 1.0, Confidence(1, 50, 5000), 1e-9, "signals saturate")
	assert.InDelta(t, 0.55, Confidence(1, 0, 0), 1e-9)

	assert.Equal(t, "High", Label(0.75))
	assert.Equal(t, "Medium", Label(0.5))
	assert.Equal(t, "Medium", Label(0.7499))
	assert.Equal(t, "Low", Label(0.4999))
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	t.Run("Sample", func(t *testing.T) {
		out := RenderMarkdown(Build(sampleCases()))

		assert.Contains(t, out, "- Recommended Architecture: Agent\n")
		assert.Contains(t, out, "- Confidence: Medium (")
		assert.Contains(t, out, "- Evidence: cases=4, points=180, comments=35\n")
		assert.Contains(t, out, "  - Agent: 2/4 (0.50)\n")
		assert.Contains(t, out, "- action_items (signal=2)\n")
		assert.Contains(t, out, "- latency (signal=2) → queueing + batching + caching\n")
		assert.Contains(t, out, "- compliance (signal=1) → (no playbook yet)\n")
		assert.Contains(t, out, "- Must (MVP to sell):\n")
		assert.Contains(t, out, "- pts:100 | Recap bot\n  https://example.com/1\n")
		assert.Contains(t, out, " ├─ requires → human_review_loop\n")
	})

	t.Run("ShowsSixFeatures", func(t *testing.T) {
		var feats []string
		for _, s := range "abcdefgh" {
			feats = append(feats, "feat_"+string(s))
		}
		out := RenderMarkdown(Build([]ingest.Case{{Pattern: PatternAgent, Features: feats}}))

		assert.Contains(t, out, "- feat_f (signal=1)")
		assert.NotContains(t, out, "- feat_g (signal=1)")
		assert.Contains(t, out, "- (no risks detected)")
	})

	t.Run("Empty", func(t *testing.T) {
		out := RenderMarkdown(nil)
		assert.Contains(t, out, "(no cases)")
		assert.NotContains(t, out, "## Decision")
	})

	t.Run("TruncatesTitles", func(t *testing.T) {
		long := strings.Repeat("é", 120)
		out := RenderMarkdown(Build([]ingest.Case{{Pattern: PatternAgent, Title: long}}))
		assert.Contains(t, out, "| "+strings.Repeat("é", maxTitle)+"\n")
	})
}

func TestRenderMetrics(t *testing.T) {
	t.Parallel()

	out := RenderMetrics(DailyMetrics(sampleCases(), "2026-01-02"))
	assert.Contains(t, out, "## Daily Metrics (2026-01-02)")
	assert.Contains(t, out, "- Interest score:  270")
	assert.Contains(t, out, "agent=0.5000")
}
