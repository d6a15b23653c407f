package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types
const (
	prefixRun  = "run:" // run data
	prefixTime = "t:"   // all runs by creation time
	prefixKind = "k:"   // runs by kind and creation time
)

// BadgerBackend is a BadgerDB-backed Store.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// SaveRun implements Store.
func (b *BadgerBackend) SaveRun(ctx context.Context, run *Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !run.Kind.Valid() {
		return fmt.Errorf("saving run: invalid kind %q", run.Kind)
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		old, err := getRun(txn, run.ID)
		switch {
		case err == nil:
			if err := txn.Delete(timeKey(prefixTime, old)); err != nil {
				return fmt.Errorf("deleting time index: %w", err)
			}
			if err := txn.Delete(timeKey(kindPrefix(old.Kind), old)); err != nil {
				return fmt.Errorf("deleting kind index: %w", err)
			}
			if err := unindexRun(txn, old); err != nil {
				return err
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if err := txn.Set(runKey(run.ID), data); err != nil {
			return fmt.Errorf("setting run: %w", err)
		}
		if err := txn.Set(timeKey(prefixTime, run), []byte(run.ID)); err != nil {
			return fmt.Errorf("setting time index: %w", err)
		}
		if err := txn.Set(timeKey(kindPrefix(run.Kind), run), []byte(run.ID)); err != nil {
			return fmt.Errorf("setting kind index: %w", err)
		}
		return indexRun(txn, run)
	})
}

// GetRun implements Store.
func (b *BadgerBackend) GetRun(ctx context.Context, id string) (*Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var run *Run
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		run, err = getRun(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun implements Store.
func (b *BadgerBackend) LatestRun(ctx context.Context, kind Kind) (*Run, error) {
	runs, err := b.ListRuns(ctx, kind, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

// ListRuns implements Store.
func (b *BadgerBackend) ListRuns(ctx context.Context, kind Kind, limit int) ([]*Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	prefix := []byte(prefixTime)
	if kind != "" {
		prefix = []byte(kindPrefix(kind))
	}

	var runs []*Run
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the last key with the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return fmt.Errorf("reading index: %w", err)
			}

			run, err := getRun(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			runs = append(runs, run)

			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// SearchRuns implements Store.
func (b *BadgerBackend) SearchRuns(ctx context.Context, query string, kind Kind, limit int) ([]SearchResult, error) {
	words := queryTokens(query)
	if len(words) == 0 {
		return []SearchResult{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	results := []SearchResult{}
	err := b.db.View(func(txn *badger.Txn) error {
		scores, err := searchIndex(txn, words)
		if err != nil {
			return err
		}

		for id, score := range scores {
			if err := ctx.Err(); err != nil {
				return err
			}

			run, err := getRun(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if kind != "" && run.Kind != kind {
				continue
			}
			results = append(results, SearchResult{Run: run, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rankResults(results, limit), nil
}

func getRun(txn *badger.Txn, id string) (*Run, error) {
	item, err := txn.Get(runKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}

	var run Run
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &run)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling run: %w", err)
	}
	return &run, nil
}

func runKey(id string) []byte {
	return []byte(prefixRun + id)
}

func kindPrefix(kind Kind) string {
	return prefixKind + string(kind) + ":"
}

// timeKey orders runs by creation time. The zero-padded nanosecond
// timestamp keeps lexicographic and chronological order aligned.
func timeKey(prefix string, run *Run) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefix, run.CreatedAt.UnixNano(), run.ID))
}
