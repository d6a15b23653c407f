package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is an in-memory Store. It stands in for the run history
// when none has been recorded yet.
type MemoryBackend struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryBackend creates a new in-memory store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{runs: make(map[string]*Run)}
}

// Initialize implements Store.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[string]*Run)
	}
	return nil
}

// Close implements Store. It drops every run; the store stays usable.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = make(map[string]*Run)
	return nil
}

// SaveRun implements Store.
func (m *MemoryBackend) SaveRun(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !run.Kind.Valid() {
		return fmt.Errorf("saving run: invalid kind %q", run.Kind)
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

// GetRun implements Store.
func (m *MemoryBackend) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// LatestRun implements Store.
func (m *MemoryBackend) LatestRun(ctx context.Context, kind Kind) (*Run, error) {
	runs, _ := m.ListRuns(ctx, kind, 1)
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

// ListRuns implements Store.
func (m *MemoryBackend) ListRuns(ctx context.Context, kind Kind, limit int) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs []*Run
	for _, run := range m.runs {
		if kind != "" && run.Kind != kind {
			continue
		}
		cp := *run
		runs = append(runs, &cp)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SearchRuns implements Store. The memory store keeps no index and scores
// each run's text on demand.
func (m *MemoryBackend) SearchRuns(ctx context.Context, query string, kind Kind, limit int) ([]SearchResult, error) {
	words := queryTokens(query)
	if len(words) == 0 {
		return []SearchResult{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []SearchResult{}
	for _, run := range m.runs {
		if kind != "" && run.Kind != kind {
			continue
		}
		terms := termFrequencies(runText(run))
		score := 0
		for _, w := range words {
			score += terms[w]
		}
		if score > 0 {
			cp := *run
			results = append(results, SearchResult{Run: &cp, Score: score})
		}
	}
	return rankResults(results, limit), nil
}

// Len returns the number of stored runs.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}
