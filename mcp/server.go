// Package mcp provides the MCP (Model Context Protocol) server for riskgraph.
//
// Tools and resources are registered on a go-sdk server, which owns the
// JSON-RPC framing and the stdio transport.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/riskgraph/internal/insights"
	"github.com/Benny93/riskgraph/internal/pipeline"
	"github.com/Benny93/riskgraph/internal/storage"
)

// serverVersion is reported in the initialize handshake.
const serverVersion = "0.1.0"

// Defaults applied by the tool schemas when a limit is omitted.
const (
	defaultCentralityLimit = 10
	defaultHistoryLimit    = 20
)

// RunHistory is the read side of the run store.
type RunHistory interface {
	LatestRun(ctx context.Context, kind storage.Kind) (*storage.Run, error)
	ListRuns(ctx context.Context, kind storage.Kind, limit int) ([]*storage.Run, error)
	SearchRuns(ctx context.Context, query string, kind storage.Kind, limit int) ([]storage.SearchResult, error)
}

// Server represents the MCP server.
type Server struct {
	runner  *pipeline.Runner
	history RunHistory
	server  *mcp.Server
}

// InsightsInput are the graph_insights arguments.
type InsightsInput struct {
	EdgesPath string `json:"edges_path"`
	Format    string `json:"format,omitempty"`
}

// ImpactInput are the risk_impact arguments.
type ImpactInput struct {
	EdgesPath string `json:"edges_path"`
	Risk      string `json:"risk"`
}

// CentralityInput are the centrality arguments.
type CentralityInput struct {
	EdgesPath string `json:"edges_path"`
	Limit     int    `json:"limit,omitempty"`
}

// PrioritizeInput are the prioritize arguments.
type PrioritizeInput struct {
	ItemsPath string `json:"items_path"`
	Limit     int    `json:"limit,omitempty"`
}

// HistoryInput are the run_history arguments.
type HistoryInput struct {
	Kind  string `json:"kind,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Query string `json:"query,omitempty"`
}

// NewServer creates a new MCP server with every tool and resource
// registered. history may be nil when no runs have been recorded yet.
func NewServer(runner *pipeline.Runner, history RunHistory) *Server {
	s := &Server{
		runner:  runner,
		history: history,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "riskgraph",
		Version: serverVersion,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// Run serves MCP over t until the client disconnects or ctx is canceled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// ServeStdio serves MCP over stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "graph_insights",
		Description: "Build the graph insight report (hubs, risk neighbors, feature cases, risk impact zones, impact scores, centrality) for an edge list CSV.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"edges_path": {Type: "string", Description: "Path to the edge list CSV"},
				"format":     {Type: "string", Enum: []any{"markdown", "json"}, Description: "Output format"},
			},
			Required: []string{"edges_path"},
		},
	}, textTool(s.handleInsights))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "risk_impact",
		Description: "Impact zone of one node: its 1-hop and 2-hop neighborhoods and the score credit it gives each node.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"edges_path": {Type: "string", Description: "Path to the edge list CSV"},
				"risk":       {Type: "string", Description: "Node ID, usually a risk such as latency"},
			},
			Required: []string{"edges_path", "risk"},
		},
	}, textTool(s.handleImpact))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "centrality",
		Description: "Rank the nodes of an edge list CSV by degree, betweenness and PageRank.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"edges_path": {Type: "string", Description: "Path to the edge list CSV"},
				"limit":      {Type: "integer", Minimum: jsonschema.Ptr(1.0), Default: jsonDefault(defaultCentralityLimit), Description: "Nodes per metric"},
			},
			Required: []string{"edges_path"},
		},
	}, textTool(s.handleCentrality))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "prioritize",
		Description: "Score and rank an idea batch (JSON array or CSV). Returns items with raw and percentile-normalized priority.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"items_path": {Type: "string", Description: "Path to the idea batch"},
				"limit":      {Type: "integer", Description: "Maximum number of items to return"},
			},
			Required: []string{"items_path"},
		},
	}, textTool(s.handlePrioritize))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_history",
		Description: "List recorded insights and priority runs, newest first, or search them by the risks, patterns and ideas they mention.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"kind":  {Type: "string", Enum: []any{"insights", "priority"}, Description: "Filter by run kind"},
				"limit": {Type: "integer", Default: jsonDefault(defaultHistoryLimit), Description: "Maximum number of runs"},
				"query": {Type: "string", Description: "Full-text query; best matches first"},
			},
		},
	}, textTool(s.handleHistory))
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         "riskgraph://latest-insights",
		Name:        "Latest Graph Insights",
		Description: "Markdown report of the most recent insights run",
		MIMEType:    "text/markdown",
	}, textResource("text/markdown", s.latestInsights))

	s.server.AddResource(&mcp.Resource{
		URI:         "riskgraph://latest-priorities",
		Name:        "Latest Priorities",
		Description: "Ranked items of the most recent prioritize run",
		MIMEType:    "application/json",
	}, textResource("application/json", s.latestPriorities))

	s.server.AddResource(&mcp.Resource{
		URI:         "riskgraph://schema",
		Name:        "Graph Schema",
		Description: "Node types, relations and scoring rules",
		MIMEType:    "text/markdown",
	}, textResource("text/markdown", func(context.Context) (string, error) {
		return getSchema(), nil
	}))
}

// textTool adapts a handler that renders text into a typed tool handler.
// Handler errors reach the client as tool results flagged IsError.
func textTool[In any](h func(context.Context, In) (string, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		text, err := h(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

func textResource(mimeType string, read func(context.Context) (string, error)) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := read(ctx)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: mimeType,
				Text:     text,
			}},
		}, nil
	}
}

func jsonDefault(n int) json.RawMessage {
	return json.RawMessage(fmt.Sprint(n))
}

// Tool handlers

func (s *Server) handleInsights(ctx context.Context, in InsightsInput) (string, error) {
	if in.EdgesPath == "" {
		return "No edges_path provided", nil
	}

	res, err := s.runner.RunInsights(ctx, in.EdgesPath, nil)
	if err != nil {
		return "", err
	}

	if in.Format == "json" {
		return toJSON(res.Document)
	}

	var sb strings.Builder
	sb.WriteString(res.Markdown)
	if res.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("\n_Skipped %d malformed rows._\n", res.Skipped))
	}
	sb.WriteString("\nNext: Use `risk_impact` on a risk node for its full blast radius.")
	return sb.String(), nil
}

func (s *Server) handleImpact(_ context.Context, in ImpactInput) (string, error) {
	if in.EdgesPath == "" {
		return "No edges_path provided", nil
	}
	if in.Risk == "" {
		return "No risk provided", nil
	}

	res, err := s.runner.RunImpact(in.EdgesPath, in.Risk)
	if errors.Is(err, pipeline.ErrNodeNotFound) {
		return fmt.Sprintf("Node '%s' not found in %s", in.Risk, in.EdgesPath), nil
	}
	if err != nil {
		return "", err
	}

	return insights.RenderZone(res.Zone, res.Type, res.Credits), nil
}

func (s *Server) handleCentrality(_ context.Context, in CentralityInput) (string, error) {
	if in.EdgesPath == "" {
		return "No edges_path provided", nil
	}

	ranks, err := s.runner.RunCentrality(in.EdgesPath, in.Limit)
	if err != nil {
		return "", err
	}
	return insights.RenderCentrality(ranks, in.Limit), nil
}

func (s *Server) handlePrioritize(ctx context.Context, in PrioritizeInput) (string, error) {
	if in.ItemsPath == "" {
		return "No items_path provided", nil
	}

	res, err := s.runner.RunPriority(ctx, in.ItemsPath)
	if err != nil {
		return "", err
	}
	if len(res.Items) == 0 {
		return "No items found", nil
	}

	return toJSON(res.Top(in.Limit))
}

func (s *Server) handleHistory(ctx context.Context, in HistoryInput) (string, error) {
	if s.history == nil {
		return noHistory, nil
	}
	kind := storage.Kind(in.Kind)
	if kind != "" && !kind.Valid() {
		return "", fmt.Errorf("unknown run kind: %s", kind)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if strings.TrimSpace(in.Query) != "" {
		return s.searchHistory(ctx, in.Query, kind, limit)
	}

	runs, err := s.history.ListRuns(ctx, kind, limit)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "No runs recorded", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Run History (%d)\n\n", len(runs)))
	for _, r := range runs {
		sb.WriteString(formatRun(r))
	}
	return sb.String(), nil
}

func (s *Server) searchHistory(ctx context.Context, query string, kind storage.Kind, limit int) (string, error) {
	results, err := s.history.SearchRuns(ctx, query, kind, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No runs match %q", query), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Runs matching %q (%d)\n\n", query, len(results)))
	for _, res := range results {
		sb.WriteString(strings.TrimSuffix(formatRun(res.Run), "\n"))
		sb.WriteString(fmt.Sprintf(" (score=%d)\n", res.Score))
	}
	return sb.String(), nil
}

func formatRun(r *storage.Run) string {
	return fmt.Sprintf("- `%s` %s at %s from %s\n", r.ID, r.Kind, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source)
}

// Resource handlers

const noHistory = "No run history recorded yet. Run `riskgraph insights` or `riskgraph prioritize` first."

func (s *Server) latestInsights(ctx context.Context) (string, error) {
	run, err := s.latest(ctx, storage.KindInsights)
	if run == nil || err != nil {
		return noHistory, err
	}
	return run.Markdown, nil
}

func (s *Server) latestPriorities(ctx context.Context) (string, error) {
	run, err := s.latest(ctx, storage.KindPriority)
	if run == nil || err != nil {
		return noHistory, err
	}
	return string(run.Payload), nil
}

// latest returns nil without error when nothing has been recorded.
func (s *Server) latest(ctx context.Context, kind storage.Kind) (*storage.Run, error) {
	if s.history == nil {
		return nil, nil
	}
	run, err := s.history.LatestRun(ctx, kind)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return run, err
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# riskgraph Graph Schema\n\n")
	sb.WriteString("## Node Types\n\n")
	sb.WriteString("| Type | Rule (case-insensitive, first match wins) |\n")
	sb.WriteString("|------|--------------------------------------------|\n")
	sb.WriteString("| `case` | ID starts with `case_` |\n")
	sb.WriteString("| `pattern` | ID is `agent`, or contains `generator` or `hybrid/rag` |\n")
	sb.WriteString("| `risk` | ID is one of hallucination, privacy, security, compliance, latency, cost |\n")
	sb.WriteString("| `feature` | anything else |\n")
	sb.WriteString("| `unknown` | empty or unclassifiable IDs |\n")
	sb.WriteString("\n## Relations\n\n")
	sb.WriteString("- has_pattern: case → pattern\n")
	sb.WriteString("- uses_feature: pattern → feature\n")
	sb.WriteString("- mentions_feature: case → feature\n")
	sb.WriteString("- has_risk_signal: pattern → risk\n")
	sb.WriteString("- mentions_risk: case → risk\n")
	sb.WriteString("\n## Impact Score\n\n")
	sb.WriteString("Neighborhoods are undirected. For every risk node, each node within 1 hop gains 2 and each node within 2 hops gains 1. ")
	sb.WriteString("The 2-hop zone includes the 1-hop zone, so a direct neighbor gains 3 from that risk.\n")
	sb.WriteString("\n## Priority\n\n")
	sb.WriteString("base = 0.50·feasibility + 0.20·momentum + 0.15·evidence + 0.10·novelty + 0.05·confidence; ")
	sb.WriteString("raw = base × (0.6 + 0.4·confidence), × 0.7 when evidence < 0.2. ")
	sb.WriteString("Priority is the average-rank percentile of raw within the batch.\n")
	return sb.String()
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding JSON: %w", err)
	}
	return string(data), nil
}
