// Package trust computes an advisory hallucination-risk score for a plan.
// The score is a display signal only and never gates an operation.
package trust

import "github.com/mastershashi/llm-engineering-usecases/internal/plan"

const (
	// MaxScore is returned for empty or absent plans.
	MaxScore = 100

	highRiskPenalty = 15
	troublePenalty  = 20
)

// Band is the display banding of a score.
type Band string

const (
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
)

// Label returns the human-readable band text.
func (b Band) Label() string {
	return string(b) + " risk"
}

// Score returns max(0, 100 - 15*highRisk - 20*(failed+awaiting)).
// Callers pass the last fully refreshed snapshot, never one patched from
// event payloads.
func Score(p *plan.Plan) int {
	if p == nil {
		return MaxScore
	}
	highRisk, trouble := 0, 0
	for _, n := range p.DAG.Nodes {
		if n.RiskLevel == plan.RiskHigh {
			highRisk++
		}
		if n.Status == plan.NodeFailed || n.Status == plan.NodeAwaitingApproval {
			trouble++
		}
	}
	score := MaxScore - highRiskPenalty*highRisk - troublePenalty*trouble
	if score < 0 {
		return 0
	}
	return score
}

// BandOf classifies a score: above 70 low, above 40 moderate, else high.
func BandOf(score int) Band {
	switch {
	case score > 70:
		return BandLow
	case score > 40:
		return BandModerate
	default:
		return BandHigh
	}
}

// Estimate is a score together with its band.
type Estimate struct {
	Score int  `json:"score"`
	Band  Band `json:"band"`
}

// EstimateOf scores p and bands the result.
func EstimateOf(p *plan.Plan) Estimate {
	s := Score(p)
	return Estimate{Score: s, Band: BandOf(s)}
}
