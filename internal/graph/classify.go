package graph

import (
	"strings"
	"unicode/utf8"
)

// Rule maps identifiers matching a predicate to a node type.
// Match receives the lower-cased, trimmed identifier.
type Rule struct {
	Type  NodeType
	Match func(id string) bool
}

// casePrefix marks discussion-case nodes (case_1, case_40123, ...).
const casePrefix = "case_"

var (
	patternKeywords = []string{"generator", "hybrid/rag"}
	patternExact    = map[string]struct{}{"agent": {}}
	riskKeywords    = map[string]struct{}{
		"hallucination": {},
		"privacy":       {},
		"security":      {},
		"compliance":    {},
		"latency":       {},
		"cost":          {},
	}
)

// DefaultRules returns the built-in classification rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Type: NodeCase, Match: func(id string) bool {
			return strings.HasPrefix(id, casePrefix)
		}},
		{Type: NodePattern, Match: func(id string) bool {
			if _, ok := patternExact[id]; ok {
				return true
			}
			for _, kw := range patternKeywords {
				if strings.Contains(id, kw) {
					return true
				}
			}
			return false
		}},
		{Type: NodeRisk, Match: func(id string) bool {
			_, ok := riskKeywords[id]
			return ok
		}},
		{Type: NodeFeature, Match: func(string) bool { return true }},
	}
}

// Classifier evaluates an ordered rule list, first match wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier from the given rules.
// With no rules every identifier classifies as Unknown.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// DefaultClassifier returns a classifier using DefaultRules.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules()...)
}

// Classify returns the type of the node identifier. It is total: identifiers
// that cannot be classified (empty, invalid UTF-8, or a rule that panics)
// yield NodeUnknown.
func (c *Classifier) Classify(id string) (t NodeType) {
	defer func() {
		if r := recover(); r != nil {
			t = NodeUnknown
		}
	}()

	if !utf8.ValidString(id) {
		return NodeUnknown
	}
	norm := strings.ToLower(strings.TrimSpace(id))
	if norm == "" {
		return NodeUnknown
	}

	for _, rule := range c.rules {
		if rule.Match != nil && rule.Match(norm) {
			return rule.Type
		}
	}
	return NodeUnknown
}
