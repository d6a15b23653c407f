package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAt creates a run with a fixed creation time so ordering is deterministic.
func runAt(kind Kind, source string, at time.Time) *Run {
	run := NewRun(kind, source)
	run.CreatedAt = at
	return run
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testStore exercises the Store contract against any implementation.
func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)

		run := runAt(KindInsights, "graph_edges_snapshot.csv", baseTime)
		run.Stats["nodes"] = 12
		run.Markdown = "# Graph Insights (2026-03-01)\n"
		require.NoError(t, run.SetPayload(map[string]any{"date": "2026-03-01"}))

		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, KindInsights, got.Kind)
		assert.Equal(t, "graph_edges_snapshot.csv", got.Source)
		assert.True(t, baseTime.Equal(got.CreatedAt))
		assert.Equal(t, 12, got.Stats["nodes"])
		assert.Equal(t, run.Markdown, got.Markdown)
		assert.JSONEq(t, `{"date":"2026-03-01"}`, string(got.Payload))
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InvalidKind", func(t *testing.T) {
		s := newStore(t)

		err := s.SaveRun(ctx, runAt(Kind("bogus"), "x", baseTime))
		assert.Error(t, err)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)

		first := runAt(KindInsights, "a.csv", baseTime)
		second := runAt(KindPriority, "items.json", baseTime.Add(time.Minute))
		third := runAt(KindInsights, "b.csv", baseTime.Add(2*time.Minute))
		for _, r := range []*Run{second, third, first} {
			require.NoError(t, s.SaveRun(ctx, r))
		}

		all, err := s.ListRuns(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{third.ID, second.ID, first.ID}, ids(all))

		insights, err := s.ListRuns(ctx, KindInsights, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{third.ID, first.ID}, ids(insights))

		limited, err := s.ListRuns(ctx, "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{third.ID, second.ID}, ids(limited))
	})

	t.Run("Latest", func(t *testing.T) {
		s := newStore(t)

		_, err := s.LatestRun(ctx, KindPriority)
		assert.ErrorIs(t, err, ErrNotFound)

		old := runAt(KindPriority, "old.json", baseTime)
		recent := runAt(KindPriority, "new.json", baseTime.Add(time.Hour))
		require.NoError(t, s.SaveRun(ctx, recent))
		require.NoError(t, s.SaveRun(ctx, old))

		got, err := s.LatestRun(ctx, KindPriority)
		require.NoError(t, err)
		assert.Equal(t, recent.ID, got.ID)

		_, err = s.LatestRun(ctx, KindInsights)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("OverwriteKeepsSingleEntry", func(t *testing.T) {
		s := newStore(t)

		run := runAt(KindInsights, "a.csv", baseTime)
		require.NoError(t, s.SaveRun(ctx, run))

		run.CreatedAt = baseTime.Add(time.Hour)
		run.Markdown = "updated"
		require.NoError(t, s.SaveRun(ctx, run))

		all, err := s.ListRuns(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "updated", all[0].Markdown)
	})

	t.Run("Search", func(t *testing.T) {
		s := newStore(t)

		older := runAt(KindInsights, "a.csv", baseTime)
		older.Markdown = "- **latency** → Agent, case_1\n"
		ideas := runAt(KindPriority, "items.json", baseTime.Add(time.Minute))
		require.NoError(t, ideas.SetPayload(map[string]any{
			"items": []any{map[string]any{"title": "Meeting recap", "risks": []any{"privacy"}}},
		}))
		newer := runAt(KindInsights, "b.csv", baseTime.Add(2*time.Minute))
		newer.Markdown = "latency latency cost_explosion"
		for _, r := range []*Run{older, ideas, newer} {
			require.NoError(t, s.SaveRun(ctx, r))
		}

		got, err := s.SearchRuns(ctx, "LATENCY", "", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{newer.ID, older.ID}, resultIDs(got))
		assert.Equal(t, 2, got[0].Score)

		got, err = s.SearchRuns(ctx, "privacy", "", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{ideas.ID}, resultIDs(got))

		got, err = s.SearchRuns(ctx, "explosion", KindInsights, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{newer.ID}, resultIDs(got))

		got, err = s.SearchRuns(ctx, "latency", KindPriority, 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.SearchRuns(ctx, "latency", "", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{newer.ID}, resultIDs(got))

		got, err = s.SearchRuns(ctx, " , ", "", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("SearchAfterOverwrite", func(t *testing.T) {
		s := newStore(t)

		run := runAt(KindInsights, "a.csv", baseTime)
		run.Markdown = "latency"
		require.NoError(t, s.SaveRun(ctx, run))

		run.Markdown = "privacy"
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.SearchRuns(ctx, "latency", "", 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.SearchRuns(ctx, "privacy", "", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{run.ID}, resultIDs(got))
	})
}

func resultIDs(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Run.ID
	}
	return out
}

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryBackend(t *testing.T) {
	t.Parallel()

	testStore(t, func(t *testing.T) Store {
		s := NewMemoryBackend()
		require.NoError(t, s.Initialize("", false))
		return s
	})
}

func TestMemoryBackend_CopiesRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryBackend()
	run := NewRun(KindPriority, "items.json")
	require.NoError(t, s.SaveRun(ctx, run))

	run.Source = "mutated"
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "items.json", got.Source)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryBackend_UsableAfterClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryBackend()
	require.NoError(t, s.SaveRun(ctx, NewRun(KindInsights, "a.csv")))
	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len())

	assert.NotPanics(t, func() {
		require.NoError(t, s.SaveRun(ctx, NewRun(KindPriority, "items.json")))
	})
	runs, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	a := NewRun(KindInsights, "edges.csv")
	b := NewRun(KindInsights, "edges.csv")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.NotNil(t, a.Stats)
}

func TestRun_JSON(t *testing.T) {
	t.Parallel()

	run := runAt(KindInsights, "edges.csv", baseTime)
	data, err := json.Marshal(run)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"kind":"insights"`)
	assert.NotContains(t, string(data), `"markdown"`)
}

func TestKind_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, KindInsights.Valid())
	assert.True(t, KindPriority.Valid())
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("other").Valid())
}
