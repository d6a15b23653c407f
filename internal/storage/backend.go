// Package storage records the history of riskgraph runs.
//
// A run is the output of one insights or priority computation together
// with where its input came from. Runs are write-once: computations never
// read them back, they only serve the history, show and MCP resource
// surfaces.
//
// Stored runs are full-text indexed so the history can be searched by the
// risks, patterns and ideas they mention.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Kind identifies which engine produced a run.
type Kind string

const (
	KindInsights Kind = "insights"
	KindPriority Kind = "priority"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindInsights || k == KindPriority
}

// Run is one recorded computation.
type Run struct {
	// ID is a random UUID.
	ID string `json:"id"`

	// Kind is the engine that produced the run.
	Kind Kind `json:"kind"`

	// Source is the input file path.
	Source string `json:"source"`

	// CreatedAt is when the run finished, in UTC.
	CreatedAt time.Time `json:"created_at"`

	// Stats holds summary counters (nodes, edges, items, ...).
	Stats map[string]int `json:"stats,omitempty"`

	// Markdown is the rendered report, if any.
	Markdown string `json:"markdown,omitempty"`

	// Payload is the JSON-encoded result document.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRun creates a run with a fresh ID and the current time.
func NewRun(kind Kind, source string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Stats:     make(map[string]int),
	}
}

// SetPayload JSON-encodes v into the run payload.
func (r *Run) SetPayload(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Payload = data
	return nil
}

// Store defines the interface for run history implementations.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the store.
	Close() error

	// SaveRun persists a run. Saving an existing ID overwrites it.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun returns the run with the given ID, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// LatestRun returns the most recent run of the given kind, or ErrNotFound.
	LatestRun(ctx context.Context, kind Kind) (*Run, error)

	// ListRuns returns up to limit runs, newest first. An empty kind lists
	// every kind; limit <= 0 means no limit.
	ListRuns(ctx context.Context, kind Kind, limit int) ([]*Run, error)

	// SearchRuns returns up to limit runs whose source, report or payload
	// mention any query word, best match first. An empty kind searches
	// every kind.
	SearchRuns(ctx context.Context, query string, kind Kind, limit int) ([]SearchResult, error)
}
