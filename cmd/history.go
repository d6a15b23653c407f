package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Benny93/riskgraph/internal/storage"
)

// HistoryCmd lists recorded runs.
type HistoryCmd struct {
	Kind   string `enum:"all,insights,priority" default:"all" help:"Filter by run kind (all, insights, priority)"`
	Limit  int    `short:"n" default:"20" help:"Maximum runs to list"`
	Search string `short:"s" help:"Full-text query over run sources, reports and payloads" placeholder:"QUERY"`
}

// Run executes the history command.
func (c *HistoryCmd) Run(env *Env) error {
	store, err := env.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var kind storage.Kind
	if c.Kind != "all" {
		kind = storage.Kind(c.Kind)
	}

	if strings.TrimSpace(c.Search) != "" {
		return c.search(env, store, kind)
	}

	runs, err := store.ListRuns(context.Background(), kind, c.Limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(env.Stdout, "No runs recorded")
		return err
	}

	_, err = fmt.Fprint(env.Stdout, formatRuns(runs))
	return err
}

func (c *HistoryCmd) search(env *Env, store storage.Store, kind storage.Kind) error {
	results, err := store.SearchRuns(context.Background(), c.Search, kind, c.Limit)
	if err != nil {
		return fmt.Errorf("searching runs: %w", err)
	}

	if len(results) == 0 {
		_, err := fmt.Fprintf(env.Stdout, "No runs match %q\n", c.Search)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Runs matching %q (%d)\n\n", c.Search, len(results))
	for _, res := range results {
		writeRun(&b, res.Run, fmt.Sprintf("  score=%d", res.Score))
	}
	_, err = fmt.Fprint(env.Stdout, b.String())
	return err
}

func formatRuns(runs []*storage.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Run History (%d)\n\n", len(runs))
	for _, r := range runs {
		writeRun(&b, r, "")
	}
	return b.String()
}

func writeRun(b *strings.Builder, r *storage.Run, suffix string) {
	fmt.Fprintf(b, "- %s  %-8s  %s  %s%s\n", r.ID, r.Kind, r.CreatedAt.Local().Format(time.DateTime), r.Source, suffix)
	if s := formatStats(r.Stats); s != "" {
		fmt.Fprintf(b, "  %s\n", s)
	}
}

func formatStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, stats[k])
	}
	return strings.Join(parts, ", ")
}

// ShowCmd prints a recorded run.
type ShowCmd struct {
	RunID  string `arg:"" name:"run-id" help:"Run ID, or 'latest'"`
	Kind   string `enum:"insights,priority" default:"insights" help:"Kind used with 'latest'"`
	Format string `enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
}

// Run executes the show command.
func (c *ShowCmd) Run(env *Env) error {
	store, err := env.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var run *storage.Run
	if c.RunID == "latest" {
		run, err = store.LatestRun(ctx, storage.Kind(c.Kind))
	} else {
		run, err = store.GetRun(ctx, c.RunID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("run %s not found", c.RunID)
	}
	if err != nil {
		return fmt.Errorf("loading run: %w", err)
	}

	if c.Format == formatMarkdown && run.Markdown != "" {
		_, err := fmt.Fprint(env.Stdout, run.Markdown)
		return err
	}

	if len(run.Payload) == 0 {
		return env.writeJSON("", run)
	}
	var payload any
	if err := json.Unmarshal(run.Payload, &payload); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return env.writeJSON("", payload)
}
