package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Benny93/riskgraph/internal/priority"
)

// Item file formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ItemLoad is the result of loading an idea batch.
type ItemLoad struct {
	Items   []priority.Item `json:"items"`
	Skipped []RowError      `json:"skipped,omitempty"`
}

// FormatOf returns the item format implied by a file extension.
// Anything that is not .csv is read as JSON.
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// LoadItems reads an idea batch in the given format. JSON input is an
// array of objects, or an object with an "items" array; elements that
// are not objects are skipped. CSV input is a headed table, e.g. the
// case file written by the upstream collector.
func LoadItems(r io.Reader, format string) (*ItemLoad, error) {
	switch format {
	case FormatCSV:
		return loadItemsCSV(r)
	case FormatJSON:
		return loadItemsJSON(r)
	default:
		return nil, fmt.Errorf("unsupported item format %q", format)
	}
}

// LoadItemsFile reads an idea batch, choosing the format from the extension.
func LoadItemsFile(path string) (*ItemLoad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening item file: %w", err)
	}
	defer f.Close()

	load, err := LoadItems(f, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("loading items from %s: %w", path, err)
	}
	return load, nil
}

func loadItemsCSV(r io.Reader) (*ItemLoad, error) {
	rows, skipped, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	load := &ItemLoad{Skipped: skipped}
	for i, row := range rows {
		rec := make(map[string]any, len(row.values))
		for k, v := range row.values {
			rec[k] = v
		}
		load.Items = append(load.Items, priority.ItemFromRecord(rec, i))
	}
	return load, nil
}

func loadItemsJSON(r io.Reader) (*ItemLoad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var elems []json.RawMessage
	if data[0] == '{' {
		var wrapper struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding items: %w", err)
		}
		elems = wrapper.Items
	} else if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	load := &ItemLoad{}
	for i, raw := range elems {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		var rec map[string]any
		if err := dec.Decode(&rec); err != nil || rec == nil {
			load.Skipped = append(load.Skipped, RowError{Line: i, Reason: "element is not an object"})
			continue
		}
		load.Items = append(load.Items, priority.ItemFromRecord(rec, i))
	}
	return load, nil
}
