package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Benny93/riskgraph/internal/brief"
	"github.com/Benny93/riskgraph/internal/insights"
)

// metricsFile is the daily metrics CSV kept in the reports directory.
const metricsFile = "daily_interest_metrics.csv"

// BriefCmd prints the decision brief for a day of tagged cases and records
// its daily interest metrics.
type BriefCmd struct {
	Cases     string `arg:"" type:"existingfile" help:"Tagged cases CSV"`
	Format    string `enum:"markdown,json" default:"markdown" help:"Output format (markdown, json)"`
	Date      string `help:"Metrics date as YYYY-MM-DD (default today)"`
	Metrics   string `help:"Daily metrics CSV to append to (default <reports_dir>/daily_interest_metrics.csv)" placeholder:"PATH"`
	NoMetrics bool   `help:"Do not append the daily metrics row"`
}

// briefOutput is the JSON document of the brief command.
type briefOutput struct {
	Metrics brief.Metrics `json:"metrics"`
	Brief   *brief.Brief  `json:"brief"`
}

// Run executes the brief command.
func (c *BriefCmd) Run(env *Env) error {
	date, err := parseDate(c.Date)
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = time.Now()
	}

	load, err := env.loadCases(c.Cases)
	if err != nil {
		return err
	}

	metrics := brief.DailyMetrics(load.Cases, date.Format(insights.DateLayout))
	b := brief.Build(load.Cases)

	if c.Format == formatJSON {
		if err := env.writeJSON("", briefOutput{Metrics: metrics, Brief: b}); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprint(env.Stdout, brief.RenderMarkdown(b)); err != nil {
			return err
		}
		env.printf("\n%s", brief.RenderMetrics(metrics))
	}

	if c.NoMetrics {
		return nil
	}
	path := c.Metrics
	if path == "" {
		path = filepath.Join(env.Config.ReportsDir, metricsFile)
	}
	if err := brief.AppendMetricsFile(path, metrics); err != nil {
		return err
	}
	if c.Format == formatMarkdown {
		env.success("✓ Metrics appended to %s", path)
	}
	return nil
}
