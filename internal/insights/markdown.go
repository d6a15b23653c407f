package insights

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Benny93/riskgraph/internal/centrality"
	"github.com/Benny93/riskgraph/internal/graph"
	"github.com/Benny93/riskgraph/internal/impact"
)

// Report file names written by WriteReport.
const (
	reportSuffix = "_graph_insights.md"
	latestReport = "latest_graph_insights.md"
)

// RenderMarkdown renders the document as the daily Markdown insight report.
func RenderMarkdown(doc *Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Graph Insights (%s)\n\n", doc.Date)

	b.WriteString("## 1) Top Hub Nodes (by Degree)\n")
	if len(doc.Hubs) == 0 {
		b.WriteString("- (no nodes found)\n")
	}
	for i, h := range doc.Hubs {
		fmt.Fprintf(&b, "- %d. **%s** — degree=%d, type=%s\n", i+1, h.ID, h.Degree, h.Type)
	}

	b.WriteString("\n## 2) Risk Nodes & Direct Neighbors\n")
	if len(doc.RiskNeighbors) == 0 {
		b.WriteString("- (no risk nodes found)\n")
	}
	for _, r := range doc.RiskNeighbors {
		fmt.Fprintf(&b, "- **%s** → %s\n", r.Risk, joinOrNone(r.Neighbors))
	}

	b.WriteString("\n## 3) Feature → Connected Cases\n")
	if len(doc.FeatureCases) == 0 {
		b.WriteString("- (no feature nodes found)\n")
	}
	for _, f := range doc.FeatureCases {
		fmt.Fprintf(&b, "- **%s** → cases(%d): %s\n", f.Feature, len(f.Cases), joinOrNone(f.Cases))
	}

	b.WriteString("\n## 4) Risk Impact Zone (1-hop / 2-hop)\n")
	if len(doc.RiskZones) == 0 {
		b.WriteString("- (no risk nodes found)\n")
	}
	for _, z := range doc.RiskZones {
		fmt.Fprintf(&b, "- **%s**\n", z.Risk)
		fmt.Fprintf(&b, "  - 1-hop(%d): %s\n", len(z.Hop1), joinOrNone(z.Hop1))
		fmt.Fprintf(&b, "  - 2-hop(%d): %s\n", len(z.Hop2), joinOrNone(z.Hop2))
	}

	b.WriteString("\n## 5) Impact Score Top Nodes\n")
	if len(doc.Impact) == 0 {
		b.WriteString("- (no impact nodes found)\n")
	}
	for i, n := range doc.Impact {
		fmt.Fprintf(&b, "- %d. **%s** — score=%d, degree=%d, type=%s\n", i+1, n.ID, n.Score, n.Degree, n.Type)
	}

	top := doc.TopCentrality
	if top <= 0 {
		top = DefaultTopCentrality
	}
	b.WriteString("\n## 6) Centrality (Betweenness / PageRank)\n")
	fmt.Fprintf(&b, "### 6.1 Betweenness Centrality (Top %d)\n", top)
	if len(doc.Betweenness) == 0 {
		b.WriteString("- (no nodes found)\n")
	}
	for i, r := range doc.Betweenness {
		fmt.Fprintf(&b, "- %d. **%s** — betweenness=%.4f, degree=%d, type=%s\n", i+1, r.ID, r.Score, r.Degree, r.Type)
	}

	fmt.Fprintf(&b, "\n### 6.2 PageRank (Top %d)\n", top)
	if len(doc.PageRank) == 0 {
		b.WriteString("- (no nodes found)\n")
	}
	for i, r := range doc.PageRank {
		fmt.Fprintf(&b, "- %d. **%s** — pagerank=%.4f, degree=%d, type=%s\n", i+1, r.ID, r.Score, r.Degree, r.Type)
	}

	return b.String()
}

// RenderZone renders the impact zone of a single node and the score credit
// it hands to each node inside it.
func RenderZone(z *impact.Zone, nodeType graph.NodeType, credits []impact.NodeScore) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Risk Impact: %s (type=%s)\n\n", z.Risk, nodeType)
	fmt.Fprintf(&b, "- 1-hop(%d): %s\n", len(z.Hop1), joinOrNone(z.Hop1))
	fmt.Fprintf(&b, "- 2-hop(%d): %s\n", len(z.Hop2), joinOrNone(z.Hop2))

	b.WriteString("\n## Score Credit\n")
	if len(credits) == 0 {
		b.WriteString("- (no impact nodes found)\n")
	}
	for i, n := range credits {
		fmt.Fprintf(&b, "- %d. **%s** — +%d, degree=%d, type=%s\n", i+1, n.ID, n.Score, n.Degree, n.Type)
	}

	return b.String()
}

// RenderCentrality renders the top k nodes of each centrality metric.
func RenderCentrality(res centrality.Result, k int) string {
	if k <= 0 {
		k = centrality.DefaultTopK
	}

	var b strings.Builder
	sections := []struct {
		title  string
		metric string
		ranked []centrality.Ranked
	}{
		{"Degree", "degree", res.Degree},
		{"Betweenness Centrality", "betweenness", res.Betweenness},
		{"PageRank", "pagerank", res.PageRank},
	}
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s (Top %d)\n", s.title, k)
		if len(s.ranked) == 0 {
			b.WriteString("- (no nodes found)\n")
		}
		for j, r := range s.ranked {
			if s.metric == "degree" {
				fmt.Fprintf(&b, "- %d. **%s** — degree=%d, type=%s\n", j+1, r.ID, r.Degree, r.Type)
				continue
			}
			fmt.Fprintf(&b, "- %d. **%s** — %s=%.4f, degree=%d, type=%s\n", j+1, r.ID, s.metric, r.Score, r.Degree, r.Type)
		}
	}
	return b.String()
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

// WriteReport renders doc and writes it to dir as both the dated report and
// the latest report. It returns the dated report path.
func WriteReport(dir string, doc *Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports dir: %w", err)
	}

	content := []byte(RenderMarkdown(doc))
	dated := filepath.Join(dir, doc.Date+reportSuffix)
	for _, path := range []string{dated, filepath.Join(dir, latestReport)} {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return "", fmt.Errorf("writing report %s: %w", path, err)
		}
	}

	return dated, nil
}

// LatestReportPath returns the path of the latest report inside dir.
func LatestReportPath(dir string) string {
	return filepath.Join(dir, latestReport)
}
