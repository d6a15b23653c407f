// Package graph provides the relationship graph data model for riskgraph.
//
// It defines the node types that the insight engines reason about (discussion
// cases, architecture patterns, features and risks) and the directed edges
// between them, as produced by the upstream tagging step.
package graph

// NodeType represents the derived type of a graph node.
type NodeType string

const (
	NodeCase    NodeType = "case"
	NodePattern NodeType = "pattern"
	NodeFeature NodeType = "feature"
	NodeRisk    NodeType = "risk"
	NodeUnknown NodeType = "unknown"
)

// Relation names produced by the edge snapshot builder.
const (
	RelHasPattern      = "has_pattern"
	RelUsesFeature     = "uses_feature"
	RelMentionsFeature = "mentions_feature"
	RelHasRiskSignal   = "has_risk_signal"
	RelMentionsRisk    = "mentions_risk"
)

// Edge represents a directed relationship between two nodes.
//
// Relation, Weight and Date are kept for attribution only; none of the
// graph computations look at them.
type Edge struct {
	// Source is the ID of the source node.
	Source string `json:"source"`

	// Target is the ID of the target node.
	Target string `json:"target"`

	// Relation is the relationship label (e.g., "mentions_risk").
	Relation string `json:"relation,omitempty"`

	// Weight is the number of times the relationship was observed.
	Weight int `json:"weight,omitempty"`

	// Date is the snapshot date the edge was recorded on.
	Date string `json:"date,omitempty"`
}

// Key returns the (source, target) pair identifying the edge in the graph.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target}
}

// EdgeKey identifies a directed edge. Duplicate edges share a key.
type EdgeKey struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
