package brief

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxTitle truncates evidence case titles.
const maxTitle = 95

// skeleton lists the capabilities every recommended architecture requires.
var skeleton = []string{"structured_output", "action_items", "human_review_loop"}

// RenderMarkdown renders the decision brief. A nil brief renders the
// empty-input notice.
func RenderMarkdown(b *Brief) string {
	var sb strings.Builder

	sb.WriteString("# Decision Brief\n")
	sb.WriteString("Usecase: Meeting/Call Summary (Post-upload) | Target: Team/SMB\n")
	if b == nil {
		sb.WriteString("\n(no cases)\n")
		return sb.String()
	}

	sb.WriteString("\n## Decision\n")
	fmt.Fprintf(&sb, "- Recommended Architecture: %s\n", b.Pattern)
	fmt.Fprintf(&sb, "- Confidence: %s (%.2f)\n", b.ConfidenceLabel, b.Confidence)
	fmt.Fprintf(&sb, "- Evidence: cases=%d, points=%d, comments=%d\n", b.Mentions, b.TotalPoints, b.TotalComments)

	sb.WriteString("\n## Why this is the default\n")
	for _, line := range b.Why {
		fmt.Fprintf(&sb, "- %s\n", line)
	}

	sb.WriteString("\n## Market Signals\n")
	sb.WriteString("- Pattern share:\n")
	for _, s := range b.Shares {
		fmt.Fprintf(&sb, "  - %s: %d/%d (%.2f)\n", s.Pattern, s.Count, b.Mentions, s.Share)
	}

	sb.WriteString("\n## Build First: Core AI capabilities\n")
	if len(b.Features) == 0 {
		sb.WriteString("- (no features detected)\n")
	}
	for i, f := range b.Features {
		if i == ShownFeatures {
			break
		}
		fmt.Fprintf(&sb, "- %s (signal=%d)\n", f.Name, f.Count)
	}

	sb.WriteString("\n## Top Risks & Mitigations\n")
	if len(b.Risks) == 0 {
		sb.WriteString("- (no risks detected)\n")
	}
	for _, r := range b.Risks {
		fmt.Fprintf(&sb, "- %s (signal=%d) → %s\n", r.Risk, r.Signal, strings.Join(r.Mitigations, " + "))
	}

	sb.WriteString("\n## Commercialization Checklist\n")
	for _, section := range Checklist {
		fmt.Fprintf(&sb, "- %s:\n", section.Title)
		for _, item := range section.Items {
			fmt.Fprintf(&sb, "  - %s\n", item)
		}
	}

	sb.WriteString("\n## Defer (avoid early complexity)\n")
	for _, line := range b.Defer {
		fmt.Fprintf(&sb, "- %s\n", line)
	}

	fmt.Fprintf(&sb, "\n## Evidence Cases (top %d by points)\n", TopCases)
	for _, c := range b.Evidence {
		fmt.Fprintf(&sb, "- pts:%d | %s\n", c.Points, truncate(c.Title, maxTitle))
		if c.URL != "" {
			fmt.Fprintf(&sb, "  %s\n", c.URL)
		}
	}

	sb.WriteString("\n## Architecture Skeleton\n")
	sb.WriteString("```\n")
	sb.WriteString(b.Pattern + "\n")
	for _, req := range skeleton {
		fmt.Fprintf(&sb, " ├─ requires → %s\n", req)
	}
	sb.WriteString("```\n")

	return sb.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// RenderMetrics renders the daily metrics row.
func RenderMetrics(m Metrics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Daily Metrics (%s)\n", m.Date)
	fmt.Fprintf(&sb, "- Mentions:        %d\n", m.Mentions)
	fmt.Fprintf(&sb, "- Points:          %d\n", m.TotalPoints)
	fmt.Fprintf(&sb, "- Comments:        %d\n", m.TotalComments)
	fmt.Fprintf(&sb, "- Interest score:  %d\n", m.InterestScore)
	fmt.Fprintf(&sb, "- Pattern share:   generator=%.4f, hybrid_rag=%.4f, agent=%.4f\n", m.ShareGenerator, m.ShareHybridRAG, m.ShareAgent)
	fmt.Fprintf(&sb, "- Top feature:     %s\n", m.TopFeature)
	fmt.Fprintf(&sb, "- Top risk:        %s\n", m.TopRisk)
	return sb.String()
}
