package store

import "github.com/mastershashi/llm-engineering-usecases/internal/plan"

// View is an immutable snapshot of the store. Plans are shared with the
// store and must be treated as read-only.
type View struct {
	// Version increases on every observable change.
	Version uint64

	// Plans in display order, newest first.
	Plans []*plan.Plan

	ActiveID        string
	Active          *plan.Plan
	SelectedNode    *int
	Logs            []plan.LogEntry
	DecisionSummary *plan.DecisionSummary
	Warnings        []string
}

// Plan looks up a plan by id.
func (v View) Plan(id string) (*plan.Plan, bool) {
	for _, p := range v.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Parent returns the plan a branch was forked from, if it is known.
func (v View) Parent(p *plan.Plan) (*plan.Plan, bool) {
	if !p.IsBranch() {
		return nil, false
	}
	return v.Plan(p.BranchOf)
}

// Selected returns the selected node of the active plan.
func (v View) Selected() (plan.TaskNode, bool) {
	if v.SelectedNode == nil {
		return plan.TaskNode{}, false
	}
	return v.Active.Node(*v.SelectedNode)
}
