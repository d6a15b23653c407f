// Package priority turns per-idea heuristic signals into a normalized
// priority ranking.
//
// Score computes a raw priority from five bounded signals with fixed
// weights. Normalize converts a whole batch of raw priorities into
// percentile ranks, averaging the rank of tied values.
package priority

import "math"

// Signal weights of the base score.
const (
	WeightFeasibility = 0.50
	WeightMomentum    = 0.20
	WeightEvidence    = 0.15
	WeightNovelty     = 0.10
	WeightConfidence  = 0.05
)

// Confidence blend and insufficient-evidence penalty.
const (
	ConfidenceFloor = 0.6
	ConfidenceBlend = 0.4

	EvidenceCutoff  = 0.2
	EvidencePenalty = 0.7
)

// Signals are the five bounded inputs of the priority formula.
type Signals struct {
	Feasibility float64 `json:"feasibility"`
	Evidence    float64 `json:"evidence"`
	Momentum    float64 `json:"momentum"`
	Novelty     float64 `json:"novelty"`
	Confidence  float64 `json:"confidence"`
}

// Clamped returns s with every signal clamped to [0, 1].
func (s Signals) Clamped() Signals {
	return Signals{
		Feasibility: Clamp(s.Feasibility),
		Evidence:    Clamp(s.Evidence),
		Momentum:    Clamp(s.Momentum),
		Novelty:     Clamp(s.Novelty),
		Confidence:  Clamp(s.Confidence),
	}
}

// Score returns the raw priority of s in [0, 1].
func Score(s Signals) float64 {
	s = s.Clamped()

	base := WeightFeasibility*s.Feasibility +
		WeightMomentum*s.Momentum +
		WeightEvidence*s.Evidence +
		WeightNovelty*s.Novelty +
		WeightConfidence*s.Confidence

	raw := base * (ConfidenceFloor + ConfidenceBlend*s.Confidence)
	if s.Evidence < EvidenceCutoff {
		raw *= EvidencePenalty
	}

	return Clamp(raw)
}

// Clamp bounds x to [0, 1]. NaN maps to 0.
func Clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
