// Package brief summarizes a day of tagged cases: the daily interest
// metrics row and the decision brief that recommends an architecture
// pattern with its confidence, capabilities and risk mitigations.
package brief

import (
	"math"
	"sort"

	"github.com/Benny93/riskgraph/internal/ingest"
)

// Architecture patterns assigned by the upstream collector.
const (
	PatternGenerator = "Generator(Prompt-only)"
	PatternHybridRAG = "Hybrid/RAG"
	PatternAgent     = "Agent"
)

// Usecase labels the metrics rows.
const Usecase = "meeting_call_summary_post_upload"

// Confidence weights and scales.
const (
	WeightDominance = 0.55
	WeightMentions  = 0.25
	WeightEngage    = 0.20

	MentionsScale   = 10.0
	EngagementScale = 200.0

	HighConfidence   = 0.75
	MediumConfidence = 0.5
)

// Ranking sizes.
const (
	TopFeatures   = 8
	ShownFeatures = 6
	TopRisks      = 5
	TopCases      = 5
)

// Playbook maps a risk to its mitigations.
var Playbook = map[string][]string{
	"hallucination":  {"hallucination_guard", "human_review", "structured_output", "timestamp_alignment"},
	"privacy":        {"pii_redaction", "access_control", "retention_policy", "audit_log"},
	"cost_explosion": {"batching", "chunking", "caching", "rate_limit"},
	"latency":        {"queueing", "batching", "caching"},
}

// NoPlaybook stands in for a risk without mitigations.
const NoPlaybook = "(no playbook yet)"

var rationale = map[string][]string{
	PatternGenerator: {
		"Most common starting point in the market signals, with low build difficulty",
		"Fast release and feedback loops that suit Team/SMB buyers",
		"Low cost and operational complexity make PoC to paid conversion easy",
	},
	PatternHybridRAG: {
		"Worth it when domain knowledge or internal documents are central",
		"Indexing, quality, permissions and data freshness add operational load",
	},
	PatternAgent: {
		"Strong when tool execution and workflow automation are the core",
		"Demands safeguards and observability against unpredictable actions",
	},
}

var deferred = map[string][]string{
	PatternGenerator: {
		"Full Agent orchestration (tool chains): overkill for MVP",
		"Heavy RAG infra: quality and ops burden grows first",
		"Fully automated deploy/execute workflows: safeguards come later",
	},
	PatternHybridRAG: {
		"Agent-style autonomous actions without guardrails",
		"Broad indexing without access controls",
	},
}

var deferOther = []string{
	"Autonomous tool execution without observability/audit",
	"Unbounded actions (no policy + no rate limits)",
}

// Checklist is the commercialization checklist printed with every brief.
var Checklist = []ChecklistSection{
	{"Must (MVP to sell)", []string{
		"Upload UX (post-upload flow)",
		"Summary templates (meeting type presets)",
		"Editing & Approval (human-in-the-loop)",
		"Export/Share (Slack/Notion/email)",
		"Basic privacy controls (PII redaction + retention)",
	}},
	{"Should (stickiness)", []string{
		"Action items + owners + due dates",
		"Timestamp jump-to-text/audio",
		"Multi-language output",
		"Integrations (Jira/Trello/CRM)",
	}},
	{"Could (differentiators)", []string{
		"Project/meeting memory (team context)",
		"Glossary/style injection",
		"Speaker labels/diarization (if input supports)",
	}},
}

// ChecklistSection is one priority tier of the checklist.
type ChecklistSection struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Count is a tag with the number of cases carrying it.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Share is a pattern with its case count and fraction of all cases.
type Share struct {
	Pattern string  `json:"pattern"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"`
}

// RiskAction is a top risk with its mitigations.
type RiskAction struct {
	Risk        string   `json:"risk"`
	Signal      int      `json:"signal"`
	Mitigations []string `json:"mitigations"`
}

// Brief is the decision brief for a set of cases.
type Brief struct {
	Pattern         string        `json:"recommended_pattern"`
	Confidence      float64       `json:"confidence"`
	ConfidenceLabel string        `json:"confidence_label"`
	Mentions        int           `json:"mentions"`
	TotalPoints     int           `json:"total_points"`
	TotalComments   int           `json:"total_comments"`
	Why             []string      `json:"why"`
	Shares          []Share       `json:"pattern_shares"`
	Features        []Count       `json:"top_features"`
	Risks           []RiskAction  `json:"top_risks"`
	Defer           []string      `json:"defer"`
	Evidence        []ingest.Case `json:"evidence_cases"`
}

// Build computes the decision brief. It returns nil for no cases.
func Build(cases []ingest.Case) *Brief {
	if len(cases) == 0 {
		return nil
	}

	mentions := len(cases)
	patterns := newTally()
	features := newTally()
	risks := newTally()
	var points, comments int
	for _, c := range cases {
		patterns.add(c.Pattern)
		for _, f := range c.Features {
			features.add(f)
		}
		for _, r := range c.Risks {
			risks.add(r)
		}
		points += c.Points
		comments += c.Comments
	}

	ranked := patterns.ranked()
	dominant := ranked[0]
	confidence := Confidence(float64(dominant.Count)/float64(mentions), mentions, points+comments)

	b := &Brief{
		Pattern:         dominant.Name,
		Confidence:      confidence,
		ConfidenceLabel: Label(confidence),
		Mentions:        mentions,
		TotalPoints:     points,
		TotalComments:   comments,
		Why:             rationale[dominant.Name],
		Features:        top(features.ranked(), TopFeatures),
		Evidence:        topCases(cases, TopCases),
	}
	if b.Why == nil {
		b.Why = []string{"(no template)"}
	}
	if d, ok := deferred[dominant.Name]; ok {
		b.Defer = d
	} else {
		b.Defer = deferOther
	}

	for _, p := range ranked {
		b.Shares = append(b.Shares, Share{
			Pattern: p.Name,
			Count:   p.Count,
			Share:   float64(p.Count) / float64(mentions),
		})
	}
	for _, r := range top(risks.ranked(), TopRisks) {
		mitigations, ok := Playbook[r.Name]
		if !ok {
			mitigations = []string{NoPlaybook}
		}
		b.Risks = append(b.Risks, RiskAction{Risk: r.Name, Signal: r.Count, Mitigations: mitigations})
	}
	return b
}

// Confidence blends how dominant the leading pattern is with how much
// evidence backs it.
func Confidence(dominantShare float64, mentions, engagement int) float64 {
	return WeightDominance*dominantShare +
		WeightMentions*clamp01(float64(mentions)/MentionsScale) +
		WeightEngage*clamp01(float64(engagement)/EngagementScale)
}

// Label buckets a confidence score into High, Medium or Low.
func Label(confidence float64) string {
	switch {
	case confidence >= HighConfidence:
		return "High"
	case confidence >= MediumConfidence:
		return "Medium"
	default:
		return "Low"
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// tally counts names and ranks them by count, ties in first-seen order.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(name string) {
	if _, ok := t.counts[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

func (t *tally) ranked() []Count {
	out := make([]Count, len(t.order))
	for i, name := range t.order {
		out[i] = Count{Name: name, Count: t.counts[name]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func top(counts []Count, k int) []Count {
	if len(counts) > k {
		return counts[:k]
	}
	return counts
}

// topCases returns the k cases with the most points, ties in input order.
func topCases(cases []ingest.Case, k int) []ingest.Case {
	sorted := append([]ingest.Case(nil), cases...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Points > sorted[j].Points
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
