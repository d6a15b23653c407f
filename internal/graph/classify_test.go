package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	c := DefaultClassifier()

	tests := []struct {
		id   string
		want NodeType
	}{
		{"case_1", NodeCase},
		{"  CASE_40123 ", NodeCase},
		{"case_", NodeCase},
		{"Generator(Prompt-only)", NodePattern},
		{"Hybrid/RAG", NodePattern},
		{"agent", NodePattern},
		{"Agent", NodePattern},
		{"agentic_workflow", NodeFeature},
		{"hallucination", NodeRisk},
		{"Privacy", NodeRisk},
		{"cost", NodeRisk},
		{"cost_explosion", NodeFeature},
		{"timestamp_alignment", NodeFeature},
		{"case_generator", NodeCase},
		{"", NodeUnknown},
		{"   ", NodeUnknown},
		{string([]byte{0xff, 0xfe}), NodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.id))
		})
	}
}

func TestClassifier_Total(t *testing.T) {
	t.Parallel()

	valid := map[NodeType]bool{
		NodeCase: true, NodePattern: true, NodeFeature: true, NodeRisk: true, NodeUnknown: true,
	}
	c := DefaultClassifier()

	inputs := []string{"", "x", "case", "CASE_", "hybrid/rag/agent", strings.Repeat("z", 4096), "\x00", "☃"}
	for _, in := range inputs {
		assert.True(t, valid[c.Classify(in)], "input %q", in)
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	t.Parallel()

	t.Run("FirstMatchWins", func(t *testing.T) {
		c := NewClassifier(
			Rule{Type: NodeRisk, Match: func(id string) bool { return strings.HasSuffix(id, "_risk") }},
			Rule{Type: NodeFeature, Match: func(string) bool { return true }},
		)
		assert.Equal(t, NodeRisk, c.Classify("vendor_lock_risk"))
		assert.Equal(t, NodeFeature, c.Classify("export"))
	})

	t.Run("NoRulesIsUnknown", func(t *testing.T) {
		assert.Equal(t, NodeUnknown, NewClassifier().Classify("anything"))
	})

	t.Run("PanickingRuleDegrades", func(t *testing.T) {
		c := NewClassifier(
			Rule{Type: NodeCase, Match: func(string) bool { panic("boom") }},
		)
		assert.NotPanics(t, func() {
			assert.Equal(t, NodeUnknown, c.Classify("case_1"))
		})
	})

	t.Run("NilMatchSkipped", func(t *testing.T) {
		c := NewClassifier(Rule{Type: NodeRisk}, Rule{Type: NodeFeature, Match: func(string) bool { return true }})
		assert.Equal(t, NodeFeature, c.Classify("x"))
	})
}
