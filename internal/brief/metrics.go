package brief

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Benny93/riskgraph/internal/ingest"
)

// MetricsFields is the header of the daily metrics CSV.
var MetricsFields = []string{
	"date", "usecase", "mentions", "total_points", "total_comments", "interest_score",
	"share_generator", "share_hybrid_rag", "share_agent", "top_feature", "top_risk",
}

// Metrics is one row of the daily interest metrics.
type Metrics struct {
	Date           string  `json:"date"`
	Usecase        string  `json:"usecase"`
	Mentions       int     `json:"mentions"`
	TotalPoints    int     `json:"total_points"`
	TotalComments  int     `json:"total_comments"`
	InterestScore  int     `json:"interest_score"`
	ShareGenerator float64 `json:"share_generator"`
	ShareHybridRAG float64 `json:"share_hybrid_rag"`
	ShareAgent     float64 `json:"share_agent"`
	TopFeature     string  `json:"top_feature"`
	TopRisk        string  `json:"top_risk"`
}

// DailyMetrics computes the metrics row for the cases collected on date.
//
// interest_score = points + 2·comments + 5·mentions. Shares are rounded to
// four decimals; missing top tags are reported as "-".
func DailyMetrics(cases []ingest.Case, date string) Metrics {
	m := Metrics{
		Date:       date,
		Usecase:    Usecase,
		Mentions:   len(cases),
		TopFeature: "-",
		TopRisk:    "-",
	}

	patterns := newTally()
	features := newTally()
	risks := newTally()
	for _, c := range cases {
		m.TotalPoints += c.Points
		m.TotalComments += c.Comments
		patterns.add(c.Pattern)
		for _, f := range c.Features {
			features.add(f)
		}
		for _, r := range c.Risks {
			risks.add(r)
		}
	}
	m.InterestScore = m.TotalPoints + 2*m.TotalComments + 5*m.Mentions

	if m.Mentions > 0 {
		share := func(pattern string) float64 {
			return round4(float64(patterns.counts[pattern]) / float64(m.Mentions))
		}
		m.ShareGenerator = share(PatternGenerator)
		m.ShareHybridRAG = share(PatternHybridRAG)
		m.ShareAgent = share(PatternAgent)
	}
	if ranked := features.ranked(); len(ranked) > 0 {
		m.TopFeature = ranked[0].Name
	}
	if ranked := risks.ranked(); len(ranked) > 0 {
		m.TopRisk = ranked[0].Name
	}
	return m
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// Record returns the row in MetricsFields order.
func (m Metrics) Record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		m.Date,
		m.Usecase,
		strconv.Itoa(m.Mentions),
		strconv.Itoa(m.TotalPoints),
		strconv.Itoa(m.TotalComments),
		strconv.Itoa(m.InterestScore),
		f(m.ShareGenerator),
		f(m.ShareHybridRAG),
		f(m.ShareAgent),
		m.TopFeature,
		m.TopRisk,
	}
}

// WriteMetricsCSV writes rows to w, preceded by the header when header is
// true.
func WriteMetricsCSV(w io.Writer, header bool, rows ...Metrics) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(MetricsFields); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, m := range rows {
		if err := cw.Write(m.Record()); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendMetricsFile appends m to the metrics CSV at path, creating the file
// with a header when it does not exist yet.
func AppendMetricsFile(path string, m Metrics) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}

	info, err := os.Stat(path)
	header := errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening metrics file: %w", err)
	}
	if err := WriteMetricsCSV(f, header, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
