package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermFrequencies(t *testing.T) {
	t.Parallel()

	t.Run("CompoundWords", func(t *testing.T) {
		freq := termFrequencies("Agent → action_items, cost-explosion; agent")

		assert.Equal(t, 2, freq["agent"])
		assert.Equal(t, 1, freq["action_items"])
		assert.Equal(t, 1, freq["action"])
		assert.Equal(t, 1, freq["items"])
		assert.Equal(t, 1, freq["cost-explosion"])
		assert.Equal(t, 1, freq["explosion"])
		assert.NotContains(t, freq, "")
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, termFrequencies(""))
		assert.Empty(t, termFrequencies(" -- __ "))
	})
}

func TestQueryTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"latency", "hybrid"}, queryTokens("Latency, hybrid latency"))
	assert.Empty(t, queryTokens("  "))
}

func TestRunText(t *testing.T) {
	t.Parallel()

	run := NewRun(KindPriority, "/data/items.json")
	run.Markdown = "# Priority"
	assert.NoError(t, run.SetPayload(map[string]any{
		"count": 2,
		"items": []any{map[string]any{"title": "Meeting recap", "id": "a"}},
	}))

	text := runText(run)
	assert.Contains(t, text, "/data/items.json")
	assert.Contains(t, text, "# Priority")
	assert.Contains(t, text, "Meeting recap")
	assert.NotContains(t, text, "count")
}
