package plan

import (
	"fmt"
	"unicode/utf8"
)

// ContextBudget is the model context window the heat band is measured against.
const ContextBudget = 128000

// Node returns the node with the given id.
func (p *Plan) Node(id int) (TaskNode, bool) {
	if p == nil {
		return TaskNode{}, false
	}
	for _, n := range p.DAG.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return TaskNode{}, false
}

// IsBranch reports whether the plan was forked from another plan.
func (p *Plan) IsBranch() bool {
	return p != nil && p.BranchOf != ""
}

// Progress returns the number of completed nodes and the node total.
func (p *Plan) Progress() (done, total int) {
	if p == nil {
		return 0, 0
	}
	for _, n := range p.DAG.Nodes {
		if n.Status == NodeCompleted {
			done++
		}
	}
	return done, len(p.DAG.Nodes)
}

// TotalTokens sums token usage across all nodes.
func (p *Plan) TotalTokens() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, n := range p.DAG.Nodes {
		total += n.TokenUsage
	}
	return total
}

// AwaitingApproval returns the nodes currently held at a decision gate.
func (p *Plan) AwaitingApproval() []TaskNode {
	if p == nil {
		return nil
	}
	var out []TaskNode
	for _, n := range p.DAG.Nodes {
		if n.Status == NodeAwaitingApproval {
			out = append(out, n)
		}
	}
	return out
}

// HeatBand classifies context-window usage.
type HeatBand string

const (
	HeatHealthy  HeatBand = "healthy"
	HeatWarning  HeatBand = "warning"
	HeatCritical HeatBand = "critical"
)

// ContextHeat returns the share of ContextBudget used, capped at 100, and
// its band: below 50 healthy, below 80 warning, otherwise critical.
func ContextHeat(tokens int) (percent float64, band HeatBand) {
	percent = float64(tokens) / ContextBudget * 100
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	switch {
	case percent < 50:
		band = HeatHealthy
	case percent < 80:
		band = HeatWarning
	default:
		band = HeatCritical
	}
	return percent, band
}

// BusinessSummary is the plain-language line shown for a node in the
// non-technical view.
func BusinessSummary(n TaskNode) string {
	switch n.Status {
	case NodeCompleted:
		return fmt.Sprintf("Completed. The %q tool was used to: %s", n.Tool, n.Task)
	case NodeFailed:
		msg := n.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return "Failed. Error: " + truncate(msg, 200)
	default:
		return fmt.Sprintf("Will use %q to: %s", n.Tool, n.Task)
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
