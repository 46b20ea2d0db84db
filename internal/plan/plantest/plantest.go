// Package plantest builds plan fixtures for tests.
package plantest

import (
	"time"

	"github.com/mastershashi/llm-engineering-usecases/internal/plan"
)

// Epoch is the base time fixtures are stamped relative to.
var Epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// At returns Epoch shifted by d.
func At(d time.Duration) plan.Timestamp {
	return plan.Timestamp{Time: Epoch.Add(d)}
}

// Node returns a low-risk pending node that depends on deps.
func Node(id int, deps ...int) plan.TaskNode {
	return plan.TaskNode{
		ID:           id,
		Task:         "step",
		Tool:         "web_search",
		Args:         map[string]any{"query": "q"},
		Dependencies: deps,
		RiskLevel:    plan.RiskLow,
		Status:       plan.NodePending,
	}
}

// WithStatus returns n with the given status.
func WithStatus(n plan.TaskNode, s plan.NodeStatus) plan.TaskNode {
	n.Status = s
	return n
}

// HighRisk returns n flagged as high risk.
func HighRisk(n plan.TaskNode) plan.TaskNode {
	n.RiskLevel = plan.RiskHigh
	return n
}

// Plan returns a running plan with the given id and nodes, updated at offset.
func Plan(id string, updated time.Duration, nodes ...plan.TaskNode) *plan.Plan {
	return &plan.Plan{
		ID:     id,
		Goal:   "summarise research.txt",
		Status: plan.StatusRunning,
		DAG: plan.TaskGraph{
			Goal:            "summarise research.txt",
			Nodes:           nodes,
			ExpectedOutcome: "a summary",
		},
		CreatedAt: At(0),
		UpdatedAt: At(updated),
	}
}
