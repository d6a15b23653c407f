// Package metrics defines Prometheus metrics for riskgraph runs.
//
// The CLI is short-lived, so metrics live in a per-run registry and are
// written to a node_exporter textfile instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of a single run.
type Recorder struct {
	registry *prometheus.Registry

	Nodes        prometheus.Gauge
	Edges        prometheus.Gauge
	RiskNodes    prometheus.Gauge
	UnknownNodes prometheus.Gauge
	ItemsScored  prometheus.Counter
	RowsSkipped  *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgraph_nodes",
			Help: "Nodes in the analyzed graph",
		}),
		Edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgraph_edges",
			Help: "Distinct edges in the analyzed graph",
		}),
		RiskNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgraph_risk_nodes",
			Help: "Nodes classified as risk",
		}),
		UnknownNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskgraph_unknown_nodes",
			Help: "Nodes the classifier could not type",
		}),
		ItemsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskgraph_items_scored_total",
			Help: "Items scored by the prioritizer",
		}),
		RowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgraph_rows_skipped_total",
				Help: "Malformed input rows skipped by kind",
			},
			[]string{"input"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskgraph_run_duration_seconds",
				Help:    "Wall time of a command run",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	r.registry.MustRegister(
		r.Nodes, r.Edges, r.RiskNodes, r.UnknownNodes,
		r.ItemsScored, r.RowsSkipped, r.RunDuration,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveGraph records graph size gauges.
func (r *Recorder) ObserveGraph(nodes, edges, risks, unknown int) {
	r.Nodes.Set(float64(nodes))
	r.Edges.Set(float64(edges))
	r.RiskNodes.Set(float64(risks))
	r.UnknownNodes.Set(float64(unknown))
}

// ObserveSkipped adds n skipped rows for the given input kind.
func (r *Recorder) ObserveSkipped(input string, n int) {
	if n <= 0 {
		return
	}
	r.RowsSkipped.WithLabelValues(input).Add(float64(n))
}

// ObserveRun records how long a run of the given kind took since start.
func (r *Recorder) ObserveRun(kind string, start time.Time) {
	r.RunDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes all metrics in the text exposition format. The file
// is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
