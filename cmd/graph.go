package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/riskgraph/internal/ingest"
	"github.com/Benny93/riskgraph/internal/insights"
	"github.com/Benny93/riskgraph/internal/pipeline"
)

// Output formats.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// InsightsCmd builds the daily insight report.
type InsightsCmd struct {
	Edges   string `arg:"" type:"existingfile" help:"Edge list CSV"`
	OutDir  string `help:"Reports directory (overrides reports_dir)" placeholder:"DIR"`
	Format  string `enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
	TopHubs int    `help:"Number of hub nodes to report (overrides top_hubs)"`
	Date    string `help:"Report date as YYYY-MM-DD (default today)"`
	NoStore bool   `help:"Do not record the run in the history"`
}

// Run executes the insights command.
func (c *InsightsCmd) Run(env *Env) error {
	ctx := context.Background()

	if c.OutDir != "" {
		env.Config.ReportsDir = c.OutDir
	}
	if c.TopHubs > 0 {
		env.Config.TopHubs = c.TopHubs
	}
	date, err := parseDate(c.Date)
	if err != nil {
		return err
	}

	var progress pipeline.ProgressCallback
	if c.Format == formatMarkdown && !env.Quiet {
		progress = func(phase string, pct float64) {
			env.printf("\r\033[K%s (%.0f%%)", phase, pct*100)
		}
	}

	res, err := env.runner(date).RunInsights(ctx, c.Edges, progress)
	if err != nil {
		return err
	}
	if progress != nil {
		env.printf("\n")
	}

	return emitInsights(ctx, env, c.Edges, res, c.Format, !c.NoStore)
}

// emitInsights writes the report in the requested format and records the run.
func emitInsights(ctx context.Context, env *Env, source string, res *pipeline.InsightsResult, format string, store bool) error {
	if format == formatJSON {
		if err := env.writeJSON("", res.Document); err != nil {
			return err
		}
	} else {
		path, err := insights.WriteReport(env.Config.ReportsDir, res.Document)
		if err != nil {
			return err
		}

		stats := res.Document.Stats
		env.success("✓ Report written to %s", path)
		env.printf("  Nodes:          %d\n", stats.Nodes)
		env.printf("  Edges:          %d\n", stats.Edges)
		env.printf("  Risk nodes:     %d\n", stats.RiskNodes)
		if stats.Unknown > 0 {
			env.printf("  Unclassified:   %d\n", stats.Unknown)
		}
		if res.Skipped > 0 {
			env.printf("  Skipped rows:   %d\n", res.Skipped)
		}
		env.printf("  Duration:       %.2fs\n", res.DurationSecs)
	}

	run, err := res.Run(absPath(source))
	if err != nil {
		return fmt.Errorf("packaging run: %w", err)
	}
	return env.saveRun(ctx, run, store)
}

// ImpactCmd shows the blast radius of one node.
type ImpactCmd struct {
	Edges  string `arg:"" type:"existingfile" help:"Edge list CSV"`
	Node   string `arg:"" help:"Node ID (usually a risk such as latency)"`
	Format string `enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
}

// Run executes the impact command.
func (c *ImpactCmd) Run(env *Env) error {
	node := strings.TrimSpace(c.Node)
	if node == "" {
		return fmt.Errorf("node ID required. Usage: riskgraph impact <edges> <node>")
	}

	res, err := env.runner(time.Time{}).RunImpact(c.Edges, node)
	if err != nil {
		return err
	}

	if c.Format == formatJSON {
		return env.writeJSON("", res)
	}

	_, err = fmt.Fprint(env.Stdout, insights.RenderZone(res.Zone, res.Type, res.Credits))
	return err
}

// CentralityCmd ranks nodes by centrality.
type CentralityCmd struct {
	Edges  string `arg:"" type:"existingfile" help:"Edge list CSV"`
	Limit  int    `short:"n" default:"10" help:"Nodes per metric"`
	Format string `enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
}

// Run executes the centrality command.
func (c *CentralityCmd) Run(env *Env) error {
	ranks, err := env.runner(time.Time{}).RunCentrality(c.Edges, c.Limit)
	if err != nil {
		return err
	}
	if c.Format == formatJSON {
		return env.writeJSON("", ranks)
	}

	_, err = fmt.Fprint(env.Stdout, insights.RenderCentrality(ranks, c.Limit))
	return err
}

// EdgesCmd builds an edge list snapshot from tagged cases.
type EdgesCmd struct {
	Cases string `arg:"" type:"existingfile" help:"Tagged cases CSV"`
	Out   string `short:"o" help:"Output CSV path (default stdout)" placeholder:"PATH"`
	Date  string `help:"Snapshot date as YYYY-MM-DD (default today)"`
}

// Run executes the edges command.
func (c *EdgesCmd) Run(env *Env) error {
	date, err := parseDate(c.Date)
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = time.Now()
	}
	day := date.Format(insights.DateLayout)

	load, err := env.loadCases(c.Cases)
	if err != nil {
		return err
	}

	edges := ingest.FromCases(load.Cases)

	if c.Out == "" {
		return ingest.WriteEdgesCSV(env.Stdout, edges, day)
	}
	if err := ingest.WriteEdgesFile(c.Out, edges, day); err != nil {
		return err
	}

	env.success("✓ Wrote %d edges from %d cases to %s", len(edges), len(load.Cases), c.Out)
	return nil
}

// loadCases reads a tagged case file, logging skipped rows. An empty file
// yields no cases.
func (e *Env) loadCases(path string) (*ingest.CaseLoad, error) {
	load, err := ingest.LoadCasesFile(path)
	if errors.Is(err, ingest.ErrEmptyInput) {
		e.Log.WithField("path", path).Warn("Case file is empty")
		return &ingest.CaseLoad{}, nil
	}
	if err != nil {
		return nil, err
	}
	for _, skip := range load.Skipped {
		e.Log.WithFields(logrus.Fields{
			"path":   path,
			"line":   skip.Line,
			"reason": skip.Reason,
		}).Warn("Skipping case row")
	}
	e.Metrics.ObserveSkipped("cases", len(load.Skipped))
	return load, nil
}

// WatchCmd rebuilds the insight report when the edge list changes.
type WatchCmd struct {
	Edges    string        `arg:"" type:"existingfile" help:"Edge list CSV"`
	Debounce time.Duration `default:"500ms" help:"Quiet period before rebuilding"`
	NoStore  bool          `help:"Do not record rebuilds in the history"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(env *Env) error {
	ctx, stop := signalContext()
	defer stop()

	return c.watch(ctx, env)
}

func (c *WatchCmd) watch(ctx context.Context, env *Env) error {
	rebuild := func(ctx context.Context, _ []string) error {
		res, err := env.runner(time.Time{}).RunInsights(ctx, c.Edges, nil)
		if err != nil {
			return err
		}
		return emitInsights(ctx, env, c.Edges, res, formatMarkdown, !c.NoStore)
	}

	env.printf("## Watch Mode\n")
	env.printf("Watching %s for changes (Ctrl+C to stop)\n\n", c.Edges)

	if err := rebuild(ctx, nil); err != nil {
		return err
	}

	err := pipeline.Watch(ctx, []string{c.Edges}, c.Debounce, rebuild, env.Log)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watching: %w", err)
	}

	env.printf("Watch mode stopped.\n")
	return nil
}
