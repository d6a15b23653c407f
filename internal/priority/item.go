package priority

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Record coercion defaults.
const (
	DefaultNovelty = 0.5

	// MentionsScale is the mention count at which derived evidence saturates.
	MentionsScale = 10.0

	// EngagementScale is the points+comments total at which derived momentum saturates.
	EngagementScale = 200.0

	// maxEvidenceItems caps the supporting articles kept per item.
	maxEvidenceItems = 10
)

// EvidenceItem is a supporting article attached to an idea.
type EvidenceItem struct {
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"published_at,omitempty"`
	URL         string  `json:"url,omitempty"`
	Snippet     string  `json:"snippet,omitempty"`
	Relevance   float64 `json:"relevance"`
}

// Meta holds the raw engagement counters an item's signals were derived from.
type Meta struct {
	Mentions float64 `json:"mentions"`
	Points   float64 `json:"points"`
	Comments float64 `json:"comments"`
}

// Item is a candidate idea with its priority signals.
type Item struct {
	ID        string         `json:"idea_id"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	Tags      []string       `json:"tags"`
	ClusterID string         `json:"cluster_id,omitempty"`
	Risks     []string       `json:"risks"`
	Drivers   []string       `json:"drivers"`
	Evidence  []EvidenceItem `json:"evidence"`
	Signals   Signals        `json:"signals"`
	Meta      Meta           `json:"meta"`
}

// ScoredItem is an item annotated with its raw and normalized priority.
type ScoredItem struct {
	Item
	RawPriority float64 `json:"raw_priority"`
	Priority    float64 `json:"priority"`
}

// Rank scores every item, normalizes the raw priorities across the batch,
// and returns the items sorted by normalized priority descending (ties by
// raw priority descending, then ID).
func Rank(items []Item) []ScoredItem {
	raw := make([]float64, len(items))
	for i, it := range items {
		raw[i] = Score(it.Signals)
	}
	norm := Normalize(raw)

	out := make([]ScoredItem, len(items))
	for i, it := range items {
		out[i] = ScoredItem{Item: it, RawPriority: raw[i], Priority: norm[i]}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].RawPriority != out[j].RawPriority {
			return out[i].RawPriority > out[j].RawPriority
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// ItemFromRecord converts a loosely typed record (a decoded JSON object or
// a CSV row) into an Item. It never fails: missing or non-numeric signal
// fields fall back to 0, or 0.5 for novelty.
//
// Evidence and momentum use explicit fields when present; otherwise they
// are derived from engagement: evidence = mentions/10 and momentum =
// (points+comments)/200, each capped at 1.
func ItemFromRecord(rec map[string]any, index int) Item {
	id := firstString(rec, "id", "idea_id")
	if id == "" {
		id = fmt.Sprintf("idea_%d", index)
	}
	title := firstString(rec, "title", "idea")
	if title == "" {
		title = fmt.Sprintf("idea_%d", index)
	}
	summary := firstString(rec, "summary", "one_liner")
	if summary == "" {
		summary = title
	}

	meta := Meta{
		Mentions: numberOr(rec, 0, "mentions"),
		Points:   numberOr(rec, 0, "total_points", "points"),
		Comments: numberOr(rec, 0, "total_comments", "comments"),
	}

	evidence, ok := number(rec, "evidence")
	if !ok {
		evidence = math.Min(1, meta.Mentions/MentionsScale)
	}
	momentum, ok := number(rec, "momentum")
	if !ok {
		momentum = math.Min(1, (meta.Points+meta.Comments)/EngagementScale)
	}

	return Item{
		ID:        id,
		Title:     title,
		Summary:   summary,
		Tags:      toList(first(rec, "keywords", "tags")),
		ClusterID: firstString(rec, "cluster_id"),
		Risks:     toList(rec["risks"]),
		Drivers:   drivers(rec["decision_why"]),
		Evidence:  evidenceItems(first(rec, "articles", "evidence_articles")),
		Signals: Signals{
			Feasibility: numberOr(rec, 0, "feasibility"),
			Evidence:    evidence,
			Momentum:    momentum,
			Novelty:     numberOr(rec, DefaultNovelty, "novelty"),
			Confidence:  numberOr(rec, 0, "confidence"),
		},
		Meta: meta,
	}
}

// first returns the first present, non-empty value among keys.
func first(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

func firstString(rec map[string]any, keys ...string) string {
	return toString(first(rec, keys...))
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// number returns the first numeric value among keys. Strings are parsed;
// anything non-numeric or non-finite is treated as missing.
func number(rec map[string]any, keys ...string) (float64, bool) {
	v := first(rec, keys...)
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberOr(rec map[string]any, def float64, keys ...string) float64 {
	if f, ok := number(rec, keys...); ok {
		return f
	}
	return def
}

// toList accepts a list, a comma-separated string, or a scalar.
func toList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := toString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if !strings.Contains(t, ",") {
			return []string{t}
		}
		out := []string{}
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{toString(t)}
	}
}

// drivers flattens a {"reason": ["a", "b"]} map into "[reason] a" lines,
// ordered by reason.
func drivers(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return []string{}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []string{}
	for _, k := range keys {
		list, ok := m[k].([]any)
		if !ok {
			continue
		}
		for _, e := range list {
			out = append(out, fmt.Sprintf("[%s] %s", k, toString(e)))
		}
	}
	return out
}

func evidenceItems(v any) []EvidenceItem {
	list, ok := v.([]any)
	if !ok {
		return []EvidenceItem{}
	}
	if len(list) > maxEvidenceItems {
		list = list[:maxEvidenceItems]
	}

	out := []EvidenceItem{}
	for _, e := range list {
		a, ok := e.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, EvidenceItem{
			Title:       firstString(a, "title"),
			Source:      firstString(a, "source", "domain"),
			PublishedAt: firstString(a, "published_at"),
			URL:         firstString(a, "url"),
			Snippet:     firstString(a, "snippet"),
			Relevance:   numberOr(a, 0, "relevance"),
		})
	}
	return out
}
