// Package cmd provides CLI command implementations for riskgraph.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/Benny93/riskgraph/internal/config"
	"github.com/Benny93/riskgraph/internal/insights"
	"github.com/Benny93/riskgraph/internal/logging"
	"github.com/Benny93/riskgraph/internal/metrics"
	"github.com/Benny93/riskgraph/internal/pipeline"
	"github.com/Benny93/riskgraph/internal/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Env carries the state shared by every command.
type Env struct {
	Config  *config.Config
	Log     *logrus.Logger
	Metrics *metrics.Recorder
	Stdout  io.Writer
	Quiet   bool
}

// NewEnv builds an Env from loaded settings.
func NewEnv(cfg *config.Config, stdout, stderr io.Writer) (*Env, error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}

	return &Env{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.New(),
		Stdout:  stdout,
	}, nil
}

// runner returns a pipeline runner for the current settings. A zero date
// means today.
func (e *Env) runner(date time.Time) *pipeline.Runner {
	return &pipeline.Runner{
		Log:     e.Log,
		Metrics: e.Metrics,
		Insights: insights.Options{
			Date:          date,
			TopHubs:       e.Config.TopHubs,
			TopImpact:     e.Config.TopImpact,
			TopCentrality: e.Config.TopCentrality,
			Workers:       e.Config.Workers,
		},
	}
}

// openStore opens the run history. Read-only opens fail when no history
// has been recorded yet.
func (e *Env) openStore(readOnly bool) (*storage.BadgerBackend, error) {
	path := e.Config.StorePath()
	if readOnly {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("no run history at %s. Run 'riskgraph insights' or 'riskgraph prioritize' first", path)
		}
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(path, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// saveRun records run in the history unless storing is disabled.
func (e *Env) saveRun(ctx context.Context, run *storage.Run, enabled bool) error {
	if !enabled || !e.Config.Store {
		return nil
	}

	store, err := e.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	e.Log.WithFields(logrus.Fields{
		"id":   run.ID,
		"kind": run.Kind,
	}).Debug("Run recorded")
	return nil
}

// success prints a green status line unless quiet.
func (e *Env) success(format string, args ...any) {
	if e.Quiet {
		return
	}
	_, _ = color.New(color.FgGreen).Fprintf(e.Stdout, format+"\n", args...)
}

// printf prints a plain status line unless quiet.
func (e *Env) printf(format string, args ...any) {
	if e.Quiet {
		return
	}
	_, _ = fmt.Fprintf(e.Stdout, format, args...)
}

// writeJSON writes v as indented JSON to path, or to stdout when path is empty.
func (e *Env) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := e.Stdout.Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// finish flushes per-run metrics.
func (e *Env) finish() error {
	if e.Config.MetricsTextfile == "" {
		return nil
	}
	return e.Metrics.WriteTextfile(e.Config.MetricsTextfile)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// parseDate parses an optional YYYY-MM-DD flag value.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(insights.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// absPath resolves path for recording as a run source.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// CLI is the root Kong command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `help:"Path to config file (default .riskgraph.yaml)" placeholder:"PATH"`
	LogLevel string           `help:"Override log level (debug, info, warn, error)"`
	Quiet    bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Insights   InsightsCmd   `cmd:"" help:"Build the graph insight report from an edge list"`
	Impact     ImpactCmd     `cmd:"" help:"Show the impact zone of one node"`
	Centrality CentralityCmd `cmd:"" help:"Rank nodes by degree, betweenness and PageRank"`
	Prioritize PrioritizeCmd `cmd:"" help:"Score and rank an idea batch"`
	Edges      EdgesCmd      `cmd:"" help:"Build an edge list snapshot from tagged cases"`
	Brief      BriefCmd      `cmd:"" help:"Print the decision brief and daily metrics for tagged cases"`
	Watch      WatchCmd      `cmd:"" help:"Rebuild the insight report whenever the edge list changes"`
	History    HistoryCmd    `cmd:"" help:"List recorded runs"`
	Show       ShowCmd       `cmd:"" help:"Print a recorded run"`
	MCP        MCPCmd        `cmd:"" name:"mcp" help:"Start MCP server (stdio transport)"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// newParser builds the Kong parser for c.
func newParser(c *CLI, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name("riskgraph"),
		kong.Description("Relationship-graph insight and idea prioritization engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	}, opts...)
	return kong.New(c, opts...)
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := newParser(c)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	env, err := NewEnv(cfg, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	env.Quiet = c.Quiet

	runErr := kongCtx.Run(env)
	if err := env.finish(); err != nil {
		env.Log.WithError(err).Error("Failed to write metrics")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
