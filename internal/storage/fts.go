package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Key prefix for the full-text index.
const prefixFTS = "fts:" // fts:token:runID -> frequency

// SearchResult is a run matched by a full-text query.
type SearchResult struct {
	Run   *Run `json:"run"`
	Score int  `json:"score"`
}

var (
	wordPattern  = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)
	partsPattern = regexp.MustCompile(`[_\-]+`)
)

// termFrequencies splits text into lowercase words and counts them.
// Compound words such as action_items or cost-explosion also count their
// parts, so "items" finds "action_items".
func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, word := range wordPattern.Split(strings.ToLower(text), -1) {
		word = strings.Trim(word, "_-")
		if word == "" {
			continue
		}
		freq[word]++

		parts := partsPattern.Split(word, -1)
		if len(parts) < 2 {
			continue
		}
		for _, part := range parts {
			if part != "" {
				freq[part]++
			}
		}
	}
	return freq
}

// queryTokens returns the distinct words of a search query.
func queryTokens(query string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, word := range wordPattern.Split(strings.ToLower(query), -1) {
		word = strings.Trim(word, "_-")
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
	}
	return words
}

// runText is the searchable text of a run: its source, its report and
// every string value in its payload.
func runText(run *Run) string {
	var b strings.Builder
	b.WriteString(run.Source)
	b.WriteString("\n")
	b.WriteString(run.Markdown)

	if len(run.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(run.Payload, &payload); err == nil {
			collectStrings(&b, payload)
		}
	}
	return b.String()
}

func collectStrings(b *strings.Builder, v any) {
	switch v := v.(type) {
	case string:
		b.WriteString("\n")
		b.WriteString(v)
	case []any:
		for _, e := range v {
			collectStrings(b, e)
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(b, v[k])
		}
	}
}

// rankResults orders results by score, then newest first, and applies limit.
func rankResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Run.CreatedAt.Equal(b.Run.CreatedAt) {
			return a.Run.CreatedAt.After(b.Run.CreatedAt)
		}
		return a.Run.ID > b.Run.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func ftsKey(token, runID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixFTS, token, runID))
}

// indexRun writes the token frequencies of run.
func indexRun(txn *badger.Txn, run *Run) error {
	for token, freq := range termFrequencies(runText(run)) {
		if err := txn.Set(ftsKey(token, run.ID), []byte(strconv.Itoa(freq))); err != nil {
			return fmt.Errorf("setting token index: %w", err)
		}
	}
	return nil
}

// unindexRun removes the token entries written for run.
func unindexRun(txn *badger.Txn, run *Run) error {
	for token := range termFrequencies(runText(run)) {
		if err := txn.Delete(ftsKey(token, run.ID)); err != nil {
			return fmt.Errorf("deleting token index: %w", err)
		}
	}
	return nil
}

// searchIndex sums the frequencies of every query word per run ID.
func searchIndex(txn *badger.Txn, words []string) (map[string]int, error) {
	scores := make(map[string]int)
	for _, word := range words {
		prefix := prefixFTS + word + ":"
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			runID := strings.TrimPrefix(string(item.Key()), prefix)

			var freq int
			if err := item.Value(func(val []byte) error {
				freq, _ = strconv.Atoi(string(val))
				return nil
			}); err != nil {
				it.Close()
				return nil, fmt.Errorf("reading token index: %w", err)
			}
			scores[runID] += freq
		}
		it.Close()
	}
	return scores, nil
}
